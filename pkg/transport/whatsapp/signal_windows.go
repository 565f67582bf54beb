//go:build windows

package whatsapp

import "os"

var syscallTerm = os.Interrupt
