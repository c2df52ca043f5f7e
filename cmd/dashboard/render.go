package main

import (
	"strconv"
	"time"

	"github.com/fatih/color"
)

// ratingColor follows the Codeforces rank colours.
func ratingColor(rating int) *color.Color {
	switch {
	case rating >= 2100:
		return color.New(color.FgRed, color.Bold)
	case rating >= 1900:
		return color.New(color.FgMagenta)
	case rating >= 1600:
		return color.New(color.FgBlue)
	case rating >= 1400:
		return color.New(color.FgCyan)
	case rating >= 1200:
		return color.New(color.FgGreen)
	default:
		return color.New(color.FgHiBlack)
	}
}

func ratingText(rating int) string {
	if rating == 0 {
		return "N/A"
	}
	return strconv.Itoa(rating)
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// heatCell is one day of the submission heatmap.
func heatCell(count int) byte {
	switch {
	case count == 0:
		return '.'
	case count < 4:
		return '+'
	default:
		return '#'
	}
}

func unixDate(sec int64) string {
	return time.Unix(sec, 0).UTC().Format(time.DateOnly)
}
