package catalog

// CleanHUC normalizes a hydrologic unit code to HUC8. Codes shorter than 7
// digits carry too little information and become "". Codes of 7 or 11 digits
// lost their leading zero and get it back before truncation.
func CleanHUC(huc string) string {
	switch n := len(huc); {
	case n < 7:
		return ""
	case n == 7 || n == 11:
		huc = "0" + huc
	}
	return huc[:8]
}
