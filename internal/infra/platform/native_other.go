//go:build !windows

package platform

import "errors"

func setWallpaperNative(string) error {
	return errors.New("SystemParametersInfoW is only available on windows")
}
