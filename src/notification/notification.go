// Package notification reports outcomes to the user and asks the host
// application to come to the front.
package notification

import (
	"log"

	"screen-capture-ocr/src/logutil"
)

const maxDisplayLen = 200

// ShowResult announces a finished invocation, truncating long text.
func ShowResult(title, text string) {
	log.Printf("%s: %s", title, logutil.Truncate(text, maxDisplayLen))
}

// ShowError reports a failure that the user should see.
func ShowError(title string, err error) {
	log.Printf("%s: %v", title, err)
}

// Focuser activates the host application's main window. AppName is the
// application to activate; when empty the request is only logged.
type Focuser struct {
	AppName string
}

func (f Focuser) FocusMain() error {
	if f.AppName == "" {
		log.Printf("notification: focus requested, no host application configured")
		return nil
	}
	return activate(f.AppName)
}
