package main

const NewLine = "\r\n"
