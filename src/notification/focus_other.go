//go:build !darwin

package notification

import "log"

func activate(appName string) error {
	log.Printf("notification: window activation for %s is not supported on this platform", appName)
	return nil
}
