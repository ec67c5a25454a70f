package main

import (
	"golang.org/x/sys/windows/registry"
)

func serviceParametersKey(svcName string) string {
	return `SYSTEM\CurrentControlSet\Services\` + svcName + `\Parameters`
}

func setServiceParameter(svcName, name, value string) error {
	key, _, err := registry.CreateKey(registry.LOCAL_MACHINE, serviceParametersKey(svcName), registry.WRITE)
	if err != nil {
		return err
	}
	defer key.Close()
	return key.SetStringValue(name, value)
}

func getServiceParameter(svcName, name string) (string, error) {
	key, err := registry.OpenKey(registry.LOCAL_MACHINE, serviceParametersKey(svcName), registry.READ)
	if err != nil {
		return "", err
	}
	defer key.Close()
	v, _, err := key.GetStringValue(name)
	return v, err
}
