// Package forecast assembles four-day forecasts from Weather Underground
// forecast documents.
//
// A forecast document carries two loosely correlated sections:
//
//   - txt_forecast: alternating day and night periods with an icon, a plain
//     English narrative (fcttext) and a probability of precipitation.
//   - simpleforecast: one entry per calendar day with temperatures, humidity,
//     precipitation amounts and wind.
//
// Parse pairs narrative periods 2i and 2i+1 with calendar day i to build each
// Day. Nodes that are present but carry no value (for example <in/>) read as
// zero; missing nodes and non-numeric values fail the whole parse.
//
// Basic Usage:
//
//	doc, err := document.ParseXML(resp.Body)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	set, err := forecast.Parse(doc)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	for _, day := range set {
//		fmt.Print(day)
//	}
package forecast
