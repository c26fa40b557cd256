//go:build !linux

package process

import "github.com/aether-desk/aether/internal/domain"

// X11Windows is only functional on Linux.
type X11Windows struct{}

func (X11Windows) Minimize(int) error {
	return domain.NotImplemented("window minimize on this platform")
}
func (X11Windows) Restore(int) error { return domain.NotImplemented("window restore on this platform") }
