package infra

// PlatformSupported reports whether launchd and the administrator prompt exist here.
// See platform_darwin.go and platform_other.go.
func PlatformSupported() bool {
	return platformSupported
}
