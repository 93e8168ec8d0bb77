//go:build !windows

package lcu

import "golang.org/x/sys/unix"

func isElevated() bool { return unix.Geteuid() == 0 }
