//go:build !windows

package whatsapp

import "syscall"

var syscallTerm = syscall.SIGTERM
