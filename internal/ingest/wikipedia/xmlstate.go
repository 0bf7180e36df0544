package wikipedia

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
)

// ErrInvalidParserState is returned when the page-extraction state machine
// sees an XML token it has no valid transition for. Limbo1, Limbo2, and
// Limbo4 ignore anything unexpected (stray whitespace and sibling
// elements); every other state only tolerates the one token that advances
// it, and returns this error for anything else.
var ErrInvalidParserState = errors.New("wikipedia: invalid parser state")

// parserState walks a MediaWiki export XML stream element by element,
// pulling out each <page>'s <title> and <text> without ever buffering the
// whole document: dumps run to tens of gigabytes.
type parserState int

const (
	stateLimbo1 parserState = iota // waiting for <page><title>
	stateTitleStarted
	stateTitle
	stateLimbo2 // waiting for <text> after title, skipping <ns>/<id>/<redirect>/...
	stateTextStarted
	stateText
	stateLimbo4 // waiting for </page>
)

// rawPage is a page's title and wikitext straight off the XML stream, before
// markup stripping or redirect detection.
type rawPage struct {
	Title string
	Text  string
}

// ReadPages decodes a MediaWiki export XML stream and sends one rawPage per
// <page> element to pages, closing it when the stream ends (io.EOF) or an
// error occurs. Errors are sent on errs; the caller should read from both
// channels until pages closes.
func ReadPages(r io.Reader, pages chan<- rawPage, errs chan<- error) {
	defer close(pages)

	decoder := xml.NewDecoder(r)
	state := stateLimbo1
	var title, text string

	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			return
		}
		if err != nil {
			errs <- fmt.Errorf("wikipedia: decode xml: %w", err)
			return
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch state {
			case stateLimbo1:
				if t.Name.Local == "title" {
					state = stateTitleStarted
				}
			case stateLimbo2:
				if t.Name.Local == "text" {
					state = stateTextStarted
				}
			case stateLimbo4:
				// sibling elements between </text> and </page> are ignored.
			default:
				errs <- fmt.Errorf("%w: state %d saw start element %q", ErrInvalidParserState, state, t.Name.Local)
				return
			}
		case xml.CharData:
			switch state {
			case stateLimbo1, stateLimbo2, stateLimbo4:
				// whitespace between elements is ignored.
			case stateTitleStarted:
				title = string(t)
				state = stateTitle
			case stateTextStarted:
				text = string(t)
				state = stateText
			default:
				errs <- fmt.Errorf("%w: state %d saw character data", ErrInvalidParserState, state)
				return
			}
		case xml.EndElement:
			switch state {
			case stateLimbo1, stateLimbo2:
				// closing tags that don't open the next field are ignored.
			case stateTitle:
				if t.Name.Local != "title" {
					errs <- fmt.Errorf("%w: state %d saw end element %q", ErrInvalidParserState, state, t.Name.Local)
					return
				}
				state = stateLimbo2
			case stateText:
				if t.Name.Local != "text" {
					errs <- fmt.Errorf("%w: state %d saw end element %q", ErrInvalidParserState, state, t.Name.Local)
					return
				}
				state = stateLimbo4
			case stateLimbo4:
				if t.Name.Local == "page" {
					pages <- rawPage{Title: title, Text: text}
					title, text = "", ""
					state = stateLimbo1
				}
			default:
				errs <- fmt.Errorf("%w: state %d saw end element %q", ErrInvalidParserState, state, t.Name.Local)
				return
			}
		}
	}
}
