//go:build !windows

package main

const NewLine = "\n"
