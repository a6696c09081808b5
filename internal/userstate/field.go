package userstate

import (
	"errors"
	"fmt"
)

// ErrUnknownField is returned when a field path is not part of the vocabulary.
var ErrUnknownField = errors.New("unknown field")

// Field identifies one value the bot can collect from a user over chat.
type Field int

const (
	FieldGmailAuthCode Field = iota + 1
	FieldRedmineAddress
	FieldRedmineAuthKey
	FieldOTRSAddress
	FieldOTRSUsername
	FieldOTRSPassword
)

const (
	ServiceGmail   = "gmail"
	ServiceRedmine = "redmine"
	ServiceOTRS    = "otrs"
)

type fieldDef struct {
	path    string
	service string
	set     func(*UserState, string)
	get     func(*UserState) string
}

var fields = map[Field]fieldDef{
	FieldGmailAuthCode: {
		path:    "gmail/auth_code",
		service: ServiceGmail,
		set: func(s *UserState, v string) {
			s.Gmail.AuthCode = v
			s.Gmail.CodeState = s.Gmail.OAuthState
		},
		get: func(s *UserState) string { return s.Gmail.AuthCode },
	},
	FieldRedmineAddress: {
		path:    "redmine/address",
		service: ServiceRedmine,
		set:     func(s *UserState, v string) { s.Redmine.Address = v },
		get:     func(s *UserState) string { return s.Redmine.Address },
	},
	FieldRedmineAuthKey: {
		path:    "redmine/auth_key",
		service: ServiceRedmine,
		set:     func(s *UserState, v string) { s.Redmine.AuthKey = v },
		get:     func(s *UserState) string { return s.Redmine.AuthKey },
	},
	FieldOTRSAddress: {
		path:    "otrs/address",
		service: ServiceOTRS,
		set:     func(s *UserState, v string) { s.OTRS.Address = v },
		get:     func(s *UserState) string { return s.OTRS.Address },
	},
	FieldOTRSUsername: {
		path:    "otrs/username",
		service: ServiceOTRS,
		set:     func(s *UserState, v string) { s.OTRS.Username = v },
		get:     func(s *UserState) string { return s.OTRS.Username },
	},
	FieldOTRSPassword: {
		path:    "otrs/password",
		service: ServiceOTRS,
		set:     func(s *UserState, v string) { s.OTRS.Password = v },
		get:     func(s *UserState) string { return s.OTRS.Password },
	},
}

// ParseField resolves a slash path such as "redmine/address".
func ParseField(path string) (Field, error) {
	for f, def := range fields {
		if def.path == path {
			return f, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownField, path)
}

// Valid reports whether f belongs to the vocabulary.
func (f Field) Valid() bool {
	_, ok := fields[f]
	return ok
}

func (f Field) String() string {
	if def, ok := fields[f]; ok {
		return def.path
	}
	return fmt.Sprintf("field(%d)", int(f))
}

// Service returns the back-end the field belongs to.
func (f Field) Service() string {
	return fields[f].service
}

// MarshalText encodes the field as its slash path.
func (f Field) MarshalText() ([]byte, error) {
	def, ok := fields[f]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownField, int(f))
	}
	return []byte(def.path), nil
}

// UnmarshalText decodes a slash path.
func (f *Field) UnmarshalText(b []byte) error {
	parsed, err := ParseField(string(b))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}
