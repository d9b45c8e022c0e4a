package layout

import "homedeck/models"

var translations = map[string]map[string]string{
	models.LanguageNorwegian: {
		"metaTitle":          "Homedeck",
		"home":               "Hjem",
		"login":              "Logg inn",
		"logout":             "Logg ut",
		"register":           "Registrer",
		"email":              "E-post",
		"password":           "Passord",
		"confirmPassword":    "Bekreft passord",
		"newPassword":        "Nytt passord",
		"backToHome":         "Tilbake til forsiden",
		"forgotPassword":     "Glemt passord?",
		"resetPassword":      "Tilbakestill passord",
		"sendResetLink":      "Send lenke",
		"updatePassword":     "Oppdater passord",
		"resetEmailSent":     "Sjekk e-posten din for en lenke til å tilbakestille passordet.",
		"passwordMismatch":   "Passordene er ikke like.",
		"passwordUpdated":    "Passordet er oppdatert.",
		"confirmEmailSent":   "Sjekk e-posten din for å bekrefte kontoen.",
		"authFailed":         "Innloggingen mislyktes. Prøv igjen.",
		"haveAccount":        "Har du allerede en konto?",
		"noAccount":          "Har du ikke en konto?",
		"goodMorning":        "God morgen",
		"goodAfternoon":      "God ettermiddag",
		"goodEvening":        "God kveld",
		"dashboardSubtitle":  "Alle tjenestene dine på ett sted.",
		"yourApps":           "Dine apper",
		"addApp":             "Legg til app",
		"noApps":             "Du har ingen apper ennå.",
		"hidden":             "Skjult",
		"profile":            "Profil",
		"admin":              "Administrasjon",
		"users":              "Brukere",
		"accessLevel":        "Tilgangsnivå",
		"analytics":          "Statistikk",
		"visits":             "Besøk",
		"contacts":           "Kontakter",
		"downloads":          "Nedlastinger",
		"downloadCV":         "Last ned CV",
		"theme":              "Tema",
		"language":           "Språk",
		"colorTheme":         "Fargetema",
		"blobCount":          "Bakgrunnsbobler",
		"profileUnavailable": "Profilen kunne ikke lastes. Du ser den offentlige visningen.",
		"name":               "Navn",
		"message":            "Melding",
		"send":               "Send",
		"contactRequired":    "Navn, e-post og melding må fylles ut.",
		"contactSent":        "Takk, meldingen er sendt.",
	},
	models.LanguageEnglish: {
		"metaTitle":          "Homedeck",
		"home":               "Home",
		"login":              "Log in",
		"logout":             "Log out",
		"register":           "Register",
		"email":              "Email",
		"password":           "Password",
		"confirmPassword":    "Confirm password",
		"newPassword":        "New password",
		"backToHome":         "Back to home",
		"forgotPassword":     "Forgot password?",
		"resetPassword":      "Reset password",
		"sendResetLink":      "Send link",
		"updatePassword":     "Update password",
		"resetEmailSent":     "Check your email for a link to reset your password.",
		"passwordMismatch":   "Passwords do not match.",
		"passwordUpdated":    "Your password has been updated.",
		"confirmEmailSent":   "Check your email to confirm your account.",
		"authFailed":         "Authentication failed. Please try again.",
		"haveAccount":        "Already have an account?",
		"noAccount":          "Don't have an account?",
		"goodMorning":        "Good morning",
		"goodAfternoon":      "Good afternoon",
		"goodEvening":        "Good evening",
		"dashboardSubtitle":  "All your services in one place.",
		"yourApps":           "Your apps",
		"addApp":             "Add app",
		"noApps":             "You have no apps yet.",
		"hidden":             "Hidden",
		"profile":            "Profile",
		"admin":              "Administration",
		"users":              "Users",
		"accessLevel":        "Access level",
		"analytics":          "Analytics",
		"visits":             "Visits",
		"contacts":           "Contacts",
		"downloads":          "Downloads",
		"downloadCV":         "Download CV",
		"theme":              "Theme",
		"language":           "Language",
		"colorTheme":         "Colour theme",
		"blobCount":          "Background blobs",
		"profileUnavailable": "Your profile could not be loaded. You are seeing the public view.",
		"name":               "Name",
		"message":            "Message",
		"send":               "Send",
		"contactRequired":    "Name, email and message are required.",
		"contactSent":        "Thanks, your message was sent.",
	},
}

// T translates key into lang, falling back to English and then the key.
func T(lang, key string) string {
	if v, ok := translations[lang][key]; ok {
		return v
	}
	if v, ok := translations[models.LanguageEnglish][key]; ok {
		return v
	}
	return key
}
