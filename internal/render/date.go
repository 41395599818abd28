package render

import (
	"time"

	"github.com/goodsign/monday"
)

// FormatDate renders the certificate issue date in the deployment's locale.
// Spanish locales use the long "2 de enero de 2006" form the event
// certificates are printed with.
func FormatDate(t time.Time, locale string) string {
	loc := monday.Locale(locale)
	layout := "January 2, 2006"
	if len(locale) >= 2 && locale[:2] == "es" {
		layout = "2 de January de 2006"
	}
	return monday.Format(t, layout, loc)
}
