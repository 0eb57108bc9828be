package sos

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

var (
	ErrNotFound      = errors.New("sos configuration not found")
	ErrNoDefault     = errors.New("no default sos configuration, set one up first")
	ErrInvalidConfig = errors.New("invalid sos configuration")
)

var phonePattern = regexp.MustCompile(`^\+\d+$`)

// Config is a saved emergency message template. Each owner has at most one
// default, and always one when any config exists.
type Config struct {
	ID                 string    `json:"id"`
	OwnerID            string    `json:"owner_id"`
	Name               string    `json:"name"`
	TargetPhoneNumber  string    `json:"target_phone_number"`
	ContactDisplayName string    `json:"contact_display_name"`
	UserName           string    `json:"user_name"`
	DefaultSituation   string    `json:"default_situation"`
	IsDefault          bool      `json:"is_default"`
	CreatedAt          time.Time `json:"created_at"`
}

type Input struct {
	Name               string `json:"name"`
	TargetPhoneNumber  string `json:"target_phone_number"`
	ContactDisplayName string `json:"contact_display_name"`
	UserName           string `json:"user_name"`
	DefaultSituation   string `json:"default_situation"`
	IsDefault          bool   `json:"is_default"`
}

func (in Input) normalize() (Input, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.TargetPhoneNumber = strings.TrimSpace(in.TargetPhoneNumber)
	in.ContactDisplayName = strings.TrimSpace(in.ContactDisplayName)
	in.UserName = strings.TrimSpace(in.UserName)
	in.DefaultSituation = strings.TrimSpace(in.DefaultSituation)

	for _, f := range []struct{ name, value string }{
		{"name", in.Name},
		{"target_phone_number", in.TargetPhoneNumber},
		{"contact_display_name", in.ContactDisplayName},
		{"user_name", in.UserName},
		{"default_situation", in.DefaultSituation},
	} {
		if f.value == "" {
			return Input{}, fmt.Errorf("%w: %s is required", ErrInvalidConfig, f.name)
		}
	}
	if !phonePattern.MatchString(in.TargetPhoneNumber) {
		return Input{}, fmt.Errorf("%w: phone number must start with + followed by digits only", ErrInvalidConfig)
	}
	return in, nil
}

// Alert is a prepared SOS message and its messaging handoff link.
type Alert struct {
	ConfigName string `json:"config_name"`
	Message    string `json:"message"`
	URL        string `json:"url"`
}
