//go:build !darwin

package infra

const platformSupported = false
