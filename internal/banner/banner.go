package banner

import (
	"github.com/pterm/pterm"
	"github.com/pterm/pterm/putils"
)

func Print() {
	ptermLogo, _ := pterm.DefaultBigText.WithLetters(
		putils.LettersFromStringWithRGB("ngx", pterm.NewRGB(0, 150, 57)),
		putils.LettersFromStringWithRGB("report", pterm.NewRGB(0, 0, 0))).
		Srender()

	pterm.DefaultCenter.Print(ptermLogo)

	pterm.DefaultCenter.Print(
		pterm.DefaultHeader.
			WithFullWidth().
			WithBackgroundStyle(pterm.NewStyle(pterm.BgGreen)).
			WithMargin(5).
			Sprint(pterm.White("ngxreport - nginx access log reports")),
	)

	pterm.Info.Println(
		"Finds the newest rotated access log, ranks URLs by total request time" +
			"\nand renders a sortable HTML report for the day." +
			"\nVersion 0.1.0.",
	)
}
