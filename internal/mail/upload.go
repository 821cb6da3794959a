package mail

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/ajramos/mailtriage/internal/render"
	"github.com/google/uuid"

	gomail "github.com/emersion/go-message/mail"
)

// ErrMalformedUpload is returned when an uploaded email file cannot be parsed
var ErrMalformedUpload = errors.New("malformed upload")

// ParseUpload decodes an uploaded email file. JSON files hold an array of
// emails; .eml files hold a single RFC 5322 message. Nothing is returned
// unless the whole file is valid.
func ParseUpload(name string, data []byte) ([]Email, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%w: empty file", ErrMalformedUpload)
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json":
		return parseJSON(data)
	case ".eml":
		e, err := parseEML(data)
		if err != nil {
			return nil, err
		}
		return []Email{e}, nil
	default:
		if trimmed := bytes.TrimSpace(data); trimmed[0] == '[' {
			return parseJSON(data)
		}
		return nil, fmt.Errorf("%w: unsupported file type %q", ErrMalformedUpload, filepath.Ext(name))
	}
}

func parseJSON(data []byte) ([]Email, error) {
	var emails []Email
	if err := json.Unmarshal(data, &emails); err != nil {
		return nil, fmt.Errorf("%w: invalid JSON format: %v", ErrMalformedUpload, err)
	}
	seen := make(map[string]bool, len(emails))
	for i := range emails {
		e := &emails[i]
		if strings.TrimSpace(e.ID) == "" {
			return nil, fmt.Errorf("%w: email at index %d has no id", ErrMalformedUpload, i)
		}
		if seen[e.ID] {
			return nil, fmt.Errorf("%w: duplicate email id %q", ErrMalformedUpload, e.ID)
		}
		seen[e.ID] = true
		if e.Preview == "" {
			e.Preview = render.Preview(e.Body, render.DefaultPreviewWidth)
		}
	}
	return emails, nil
}

func parseEML(data []byte) (Email, error) {
	mr, err := gomail.CreateReader(bytes.NewReader(data))
	if err != nil {
		return Email{}, fmt.Errorf("%w: invalid message: %v", ErrMalformedUpload, err)
	}
	defer mr.Close()

	h := mr.Header
	e := Email{}
	if id, err := h.MessageID(); err == nil && id != "" {
		e.ID = id
	} else {
		e.ID = uuid.New().String()
	}
	e.Subject, _ = h.Subject()
	if from, err := h.AddressList("From"); err == nil && len(from) > 0 {
		e.Sender = from[0].Name
		e.SenderEmail = from[0].Address
		if e.Sender == "" {
			e.Sender = from[0].Address
		}
	}
	if to, err := h.AddressList("To"); err == nil {
		addrs := make([]string, 0, len(to))
		for _, a := range to {
			addrs = append(addrs, a.Address)
		}
		e.Recipient = strings.Join(addrs, ", ")
	}
	if date, err := h.Date(); err == nil && !date.IsZero() {
		e.Date = date.Format(time.RFC3339)
	}

	var textBody, htmlBody string
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Email{}, fmt.Errorf("%w: reading message part: %v", ErrMalformedUpload, err)
		}
		switch ph := part.Header.(type) {
		case *gomail.InlineHeader:
			contentType, _, _ := ph.ContentType()
			if contentType == "" {
				contentType = "text/plain"
			}
			body, readErr := io.ReadAll(part.Body)
			if readErr != nil {
				continue
			}
			switch {
			case strings.HasPrefix(contentType, "text/plain") && textBody == "":
				textBody = string(body)
			case strings.HasPrefix(contentType, "text/html") && htmlBody == "":
				htmlBody = string(body)
			}
		case *gomail.AttachmentHeader:
			e.HasAttachments = true
		}
	}

	e.Body = strings.TrimSpace(textBody)
	if e.Body == "" && htmlBody != "" {
		e.Body = render.PlainText(htmlBody)
	}
	if e.SenderEmail == "" {
		return Email{}, fmt.Errorf("%w: message has no From address", ErrMalformedUpload)
	}
	e.Preview = render.Preview(e.Body, render.DefaultPreviewWidth)
	return e, nil
}
