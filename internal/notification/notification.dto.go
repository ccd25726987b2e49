package notification

type RegisterDeviceRequest struct {
	Token    string `json:"token" validate:"required"`
	Platform string `json:"platform" validate:"required,oneof=ios android web"`
}

// ValidPlatform reports whether platform is one the push provider knows.
func ValidPlatform(platform string) bool {
	switch platform {
	case "ios", "android", "web":
		return true
	}
	return false
}
