//go:build unix

package infra

import "syscall"

// detachedAttr puts the child in its own session.
func detachedAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setsid: true}
}
