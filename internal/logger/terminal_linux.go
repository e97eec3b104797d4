//go:build linux

package logger

import "golang.org/x/sys/unix"

// termiosRequest is the ioctl for reading terminal attributes on Linux.
const termiosRequest = unix.TCGETS
