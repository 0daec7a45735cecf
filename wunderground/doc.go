// Package wunderground provides a Go client for the Weather Underground API.
//
// Requests take the form
//
//	http://api.wunderground.com/api/<key>/<feature>/q/<query>.<format>
//
// where the query names a location (state/city, ZIP code, country/city,
// latitude,longitude, airport code, pws:<station id> or autoip). Data features
// such as forecast are returned as a document.Node tree built from either the
// XML or the JSON response. Radar images are returned as raw bytes.
//
// Basic Usage:
//
//	client := wunderground.NewClient(apiKey)
//
//	doc, err := client.FetchForecast(ctx, "MO/St_Louis", wunderground.FormatXML)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	set, err := forecast.Parse(doc)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	gif, err := client.FetchRadar(ctx, "MO/St_Louis", wunderground.DefaultRadarOptions())
//
// Requests are paced with a token bucket (DefaultRequestsPerMinute by default,
// see SetRateLimit). The client never retries; HTTP failures are returned as
// *APIError or *NetworkError and invalid arguments as *ValidationError.
package wunderground
