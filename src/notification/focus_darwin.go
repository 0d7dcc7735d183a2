//go:build darwin

package notification

import (
	"fmt"
	"log"
	"os/exec"
	"strings"
)

func activate(appName string) error {
	script := fmt.Sprintf("tell application %q to activate", appName)
	out, err := exec.Command("osascript", "-e", script).CombinedOutput()
	if err != nil {
		return fmt.Errorf("osascript activate %s: %v: %s", appName, err, strings.TrimSpace(string(out)))
	}
	log.Printf("notification: activated %s", appName)
	return nil
}
