package auth

import (
	"fmt"
	"strings"
)

// ShowCookieExtractionGuide displays step-by-step instructions for
// extracting the session cookies the automated account needs.
func ShowCookieExtractionGuide() {
	fmt.Println(strings.Repeat("=", 72))
	fmt.Println("COOKIE EXTRACTION GUIDE")
	fmt.Println(strings.Repeat("=", 72))
	fmt.Println()

	fmt.Println("feedbot drives a logged-in web session, so it needs the session")
	fmt.Println("cookies of the automated account:")
	fmt.Println()

	fmt.Println("STEP 1: Log in")
	fmt.Println("   - Open https://x.com in your browser")
	fmt.Println("   - Log in with the account you want to automate")
	fmt.Println()

	fmt.Println("STEP 2: Open Developer Tools (F12 / Cmd+Option+I)")
	fmt.Println()

	fmt.Println("STEP 3: Find the cookies")
	fmt.Println("   - Go to the Application tab (Chrome) or Storage tab (Firefox)")
	fmt.Println("   - Expand 'Cookies' in the sidebar and select the site")
	fmt.Println("   - Copy the values of these cookies:")
	fmt.Println()
	fmt.Println("       auth_token   40-character hex string")
	fmt.Println("       ct0          CSRF token, long hex string")
	fmt.Println()

	fmt.Println("TIPS:")
	fmt.Println("   - Copy the entire value, without quotes or semicolons")
	fmt.Println("   - Cookies expire; refresh them when runs start failing to log in")
	fmt.Println()

	fmt.Println("SECURITY WARNING:")
	fmt.Println("   - These cookies grant full access to the account")
	fmt.Println("   - Never share them; this tool stores them encrypted")
	fmt.Println()
	fmt.Println(strings.Repeat("=", 72))
	fmt.Println()
}

// ShowQuickExtractGuide shows a condensed version for experienced users
func ShowQuickExtractGuide() {
	fmt.Println("\nQuick guide: F12 -> Application/Storage tab -> Cookies -> copy auth_token and ct0")
	fmt.Println("   Run 'feedbot auth help' for detailed instructions")
}
