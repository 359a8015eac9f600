//go:build windows

package backend

import "errors"

// Local terminal processes use a Unix PTY; ConPTY support has not been ported
// to the session backend yet.
var errUnsupportedPlatform = errors.New("local terminal sessions are not supported on windows")

func startProc(Options) (proc, error) {
	return nil, errUnsupportedPlatform
}
