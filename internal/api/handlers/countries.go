package handlers

import "net/http"

// Country is one dialable destination offered to the dialer UI.
type Country struct {
	Code string `json:"code"`
	Name string `json:"name"`
	Flag string `json:"flag"`
	ISO  string `json:"iso"`
}

var countries = []Country{
	{Code: "+91", Name: "India", Flag: "🇮🇳", ISO: "IN"},
	{Code: "+1", Name: "United States", Flag: "🇺🇸", ISO: "US"},
	{Code: "+44", Name: "United Kingdom", Flag: "🇬🇧", ISO: "GB"},
	{Code: "+1", Name: "Canada", Flag: "🇨🇦", ISO: "CA"},
	{Code: "+61", Name: "Australia", Flag: "🇦🇺", ISO: "AU"},
	{Code: "+971", Name: "United Arab Emirates", Flag: "🇦🇪", ISO: "AE"},
	{Code: "+65", Name: "Singapore", Flag: "🇸🇬", ISO: "SG"},
	{Code: "+49", Name: "Germany", Flag: "🇩🇪", ISO: "DE"},
	{Code: "+33", Name: "France", Flag: "🇫🇷", ISO: "FR"},
	{Code: "+81", Name: "Japan", Flag: "🇯🇵", ISO: "JP"},
}

// HandleListCountries lists the calling codes the dialer accepts.
func HandleListCountries() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string][]Country{"countries": countries})
	}
}
