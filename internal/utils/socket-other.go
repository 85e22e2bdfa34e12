//go:build !linux && !darwin && !freebsd && !windows

package utils

func setSocketOptions(fd uintptr) {}
