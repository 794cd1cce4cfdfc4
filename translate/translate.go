// Package translate formats user-visible assembler and simulator messages
// for the host locale.
package translate

import (
	"log"
	"sync"

	"github.com/jeandeaual/go-locale"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var (
	mutex   sync.RWMutex
	printer *message.Printer
	tag     language.Tag
)

func init() {
	locales, err := locale.GetLocales()
	if err != nil {
		log.Printf("lc3sim: locale: %v", err)
	}

	SetLanguage(locales...)
}

// SetLanguage selects the message language from a preference list of BCP 47
// locale names. An empty list selects en-US.
func SetLanguage(locales ...string) {
	if len(locales) == 0 {
		locales = []string{"en-US"}
	}

	mutex.Lock()
	defer mutex.Unlock()

	tag = message.MatchLanguage(locales...)
	if tag == language.Und {
		// No catalog entries; format for the first preference.
		tag = language.Make(locales[0])
	}
	printer = message.NewPrinter(tag)
}

// Language returns the language messages are formatted for.
func Language() language.Tag {
	mutex.RLock()
	defer mutex.RUnlock()

	return tag
}

// From an en-US Sprintf() format, translate to string.
func From(key message.Reference, args ...any) string {
	mutex.RLock()
	defer mutex.RUnlock()

	return printer.Sprintf(key, args...)
}
