package main

import (
	"fmt"
	"os/exec"

	"github.com/ok97465/okplayer/internal/app/player"
	"github.com/ok97465/okplayer/internal/domain/loop"
)

func initTerminal() {
	exec.Command("stty", "-F", "/dev/tty", "cbreak", "min", "1", "-echo").Run()
	fmt.Print("\033[?25l")
}

func cleanupTerminal() {
	exec.Command("stty", "-F", "/dev/tty", "sane").Run()
	fmt.Print("\033[?25h")
}

// render draws a single status line per event until the channel closes.
func render(events <-chan player.Event) {
	var (
		title    string
		duration string
	)
	for ev := range events {
		switch ev.Type {
		case player.EventTrackLoaded:
			title = ev.Track.Title
			duration = msToMinSec(ev.DurationMS)
			fmt.Printf("\r\033[K▶ %s  %s / %s", title, msToMinSec(ev.PositionMS), duration)
		case player.EventPositionChanged:
			fmt.Printf("\r\033[K▶ %s  %s / %s%s  %s",
				title, msToMinSec(ev.PositionMS), duration, loopTag(ev.Loop), ev.Caption)
		case player.EventStateChanged:
			if ev.State == player.StateIdle {
				fmt.Printf("\r\033[K■ stopped")
			} else {
				fmt.Printf("\r\033[K%s %s", stateGlyph(ev.State), title)
			}
		case player.EventLoopChanged:
			fmt.Printf("\r\033[K▶ %s%s", title, loopTag(ev.Loop))
		case player.EventClipExported:
			fmt.Printf("\r\033[Ksaved clip: %s\n", ev.ClipPath)
		case player.EventError:
			fmt.Printf("\r\033[K! %v\n", ev.Err)
		}
	}
}

func stateGlyph(s player.State) string {
	if s == player.StatePaused {
		return "⏸"
	}
	return "▶"
}

// loopTag formats the loop markers for the status line.
func loopTag(v player.LoopView) string {
	switch v.State {
	case loop.StatePartial:
		return fmt.Sprintf("  [A %s]", msToMinSec(v.A))
	case loop.StateFull:
		return fmt.Sprintf("  [A %s → B %s]", msToMinSec(v.A), msToMinSec(v.B))
	default:
		return ""
	}
}

// msToMinSec converts milliseconds to "minutes:seconds".
func msToMinSec(ms int64) string {
	return fmt.Sprintf("%d:%02d", ms/60000, (ms/1000)%60)
}
