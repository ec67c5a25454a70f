//go:build !windows

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// service parameters are kept as name=value lines next to the service definition
func serviceParametersFile(svcName string) string {
	return filepath.Join("/etc", svcName, "service.conf")
}

func setServiceParameter(svcName, name, value string) error {
	file := serviceParametersFile(svcName)
	params, err := readServiceParameters(file)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	params[name] = value

	var b strings.Builder
	for k, v := range params {
		fmt.Fprintf(&b, "%v=%v\n", k, v)
	}
	if err := os.MkdirAll(filepath.Dir(file), 0755); err != nil {
		return err
	}
	return os.WriteFile(file, []byte(b.String()), 0644)
}

func getServiceParameter(svcName, name string) (string, error) {
	params, err := readServiceParameters(serviceParametersFile(svcName))
	if err != nil {
		return "", err
	}
	v, ok := params[name]
	if !ok {
		return "", fmt.Errorf("service parameter '%v' is not set", name)
	}
	return v, nil
}

func readServiceParameters(file string) (map[string]string, error) {
	params := make(map[string]string)
	data, err := os.ReadFile(file)
	if err != nil {
		return params, err
	}
	for _, line := range strings.Split(string(data), "\n") {
		if k, v, ok := strings.Cut(strings.TrimSpace(line), "="); ok && k != "" {
			params[k] = v
		}
	}
	return params, nil
}
