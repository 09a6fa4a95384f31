package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
	"github.com/schollz/progressbar/v3"

	"github.com/xhad/newsbrief/internal/models"
	"github.com/xhad/newsbrief/pkg/digest"
)

func getProgressBar(total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription(color.BlueString(description)),
		progressbar.OptionSetItsString("articles"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func getSpinner(description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(color.CyanString(description)),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetWidth(20),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetRenderBlankState(true),
	)
}

// progress returns a callback that drives a bar created on the first call,
// once the total is known, and a func that finishes it.
func progress(description string) (func(done, total int), func()) {
	var bar *progressbar.ProgressBar
	update := func(done, total int) {
		if bar == nil {
			bar = getProgressBar(total, description)
		}
		_ = bar.Set(done)
	}
	finish := func() {
		if bar != nil {
			_ = bar.Finish()
			fmt.Println()
		}
	}
	return update, finish
}

func printStats(stage string, total, succeeded, skipped, failed int) {
	color.Green("✓ %s: %d total, %d succeeded", stage, total, succeeded)
	if skipped > 0 {
		color.Cyan("  %d skipped", skipped)
	}
	if failed > 0 {
		color.Yellow("  %d failed", failed)
	}
}

const (
	countryWidth = 8
	titleWidth   = 60
)

// printRanked prints one aligned line per selected article:
// [score/10] tier | country | title
func printRanked(ranked []digest.Ranked) {
	color.Cyan("\nRanked articles:")
	for _, r := range ranked {
		fmt.Printf("  [%2d/10] %s | %s | %s\n",
			r.NewsValueScore,
			runewidth.FillRight(runewidth.Truncate(r.Tier.String(), 4, ""), 4),
			runewidth.FillRight(runewidth.Truncate(r.Country, countryWidth, ""), countryWidth),
			runewidth.Truncate(r.Article.Title, titleWidth, "..."),
		)
	}
	fmt.Println()
}

func printArticles(articles []models.Article) {
	for _, a := range articles {
		fmt.Printf("  %6d  %s  %s\n",
			a.ID,
			runewidth.FillRight(runewidth.Truncate(a.Title, titleWidth, "..."), titleWidth),
			color.HiBlackString(a.URL),
		)
	}
}
