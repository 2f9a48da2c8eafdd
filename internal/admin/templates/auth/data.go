package auth

// LoginPageData encapsulates rendering state for the admin login screen.
type LoginPageData struct {
	Email     string
	Message   string
	Error     string
	Next      string
	LoginPath string
}
