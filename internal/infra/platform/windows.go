package platform

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
)

// Windows sets images with SystemParametersInfoW, falling back to a
// PowerShell P/Invoke script when the native call is unavailable.
type Windows struct {
	base
	native func(path string) error
}

// NewWindows creates the Windows strategy. native may be nil.
func NewWindows(o Options, native func(path string) error) *Windows {
	if native == nil {
		native = setWallpaperNative
	}
	return &Windows{base: newBase(o), native: native}
}

func (w *Windows) Name() string { return "windows" }

const spiScript = `Add-Type -TypeDefinition @'
using System;
using System.Runtime.InteropServices;
public class Wallpaper {
    [DllImport("user32.dll", CharSet = CharSet.Auto)]
    public static extern int SystemParametersInfo(int uAction, int uParam, string lpvParam, int fuWinIni);
}
'@;
[Wallpaper]::SystemParametersInfo(0x0014, 0, '%s', 0x01 -bor 0x02)`

func (w *Windows) chain(path string) []step {
	script := fmt.Sprintf(spiScript, strings.ReplaceAll(path, "'", "''"))
	return []step{
		{tool: "SystemParametersInfoW", run: func(context.Context) ([]byte, error) {
			return nil, w.native(path)
		}},
		w.cmd("powershell", "-NoProfile", "-Command", script),
	}
}

func (w *Windows) SetStatic(ctx context.Context, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if err := w.runChain(ctx, "set static wallpaper", w.chain(abs)); err != nil {
		return err
	}
	w.setCurrent(abs)
	return nil
}

func (w *Windows) Clear(ctx context.Context) error {
	if err := w.runChain(ctx, "clear wallpaper", w.chain("")); err != nil {
		return err
	}
	w.setCurrent("")
	return nil
}

func (w *Windows) Stop(ctx context.Context) error { return w.Clear(ctx) }

func (w *Windows) Tools() []string { return []string{"powershell"} }

func (w *Windows) VideoLaunch(path string, embed Window) (Launch, error) {
	args := mpvArgs(path, embed, true)
	return Launch{
		Candidates: []Command{
			{Name: "mpv", Args: args},
			{Name: "mpv.exe", Args: args},
			{Name: `C:\Program Files\mpv\mpv.exe`, Args: args},
			{Name: `C:\Program Files (x86)\mpv\mpv.exe`, Args: args},
			vlcCommand(path),
		},
		Discover: videoDiscover,
		Needle:   path,
	}, nil
}

func (w *Windows) WebLaunch(url string) (Launch, error) {
	return Launch{
		Candidates: []Command{
			{Name: "msedge", Args: []string{"--new-window", url}},
			{Name: "chrome", Args: []string{"--new-window", url}},
		},
		Discover: []string{"msedge", "chrome"},
		Needle:   url,
	}, nil
}

func (w *Windows) ShaderLaunch(path string) (Launch, error) {
	return Launch{
		Candidates: []Command{{Name: "shadertoy", Args: []string{path}}},
		Discover:   shaderDiscover,
		Needle:     path,
	}, nil
}

func (w *Windows) AudioLaunch(path string) (Launch, error) {
	return Launch{
		Candidates: []Command{{Name: "shadertoy", Args: []string{"--audio", path}}},
		Discover:   audioDiscover,
		Needle:     path,
	}, nil
}
