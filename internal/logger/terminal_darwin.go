//go:build darwin

package logger

import "golang.org/x/sys/unix"

// termiosRequest is the ioctl for reading terminal attributes on macOS.
const termiosRequest = unix.TIOCGETA
