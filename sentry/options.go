package sentry

import "github.com/getsentry/sentry-go"

// EventOptions holds optional settings for capturing events
type EventOptions struct {
	Tags        *Tags
	Extra       *Extra
	Level       *sentry.Level
	Fingerprint []string
}

// apply copies the options onto scope.
func (o *EventOptions) apply(scope *sentry.Scope) {
	if o == nil {
		return
	}
	if o.Tags != nil {
		scope.SetTags(o.Tags.ToMap())
	}
	if o.Extra != nil {
		for k, v := range o.Extra.ToMap() {
			scope.SetExtra(k, v)
		}
	}
	if o.Level != nil {
		scope.SetLevel(*o.Level)
	}
	if o.Fingerprint != nil {
		scope.SetFingerprint(o.Fingerprint)
	}
}

// Tags is a builder for event tags
type Tags struct {
	tags map[string]string
}

func NewTags() *Tags {
	return &Tags{tags: make(map[string]string)}
}

// Set adds a tag; empty values are skipped.
func (t *Tags) Set(key, value string) *Tags {
	if value != "" {
		t.tags[key] = value
	}
	return t
}

func (t *Tags) ToMap() map[string]string {
	return t.tags
}

// Extra is a builder for extra event data
type Extra struct {
	data map[string]interface{}
}

func NewExtra() *Extra {
	return &Extra{data: make(map[string]interface{})}
}

func (e *Extra) Set(key string, value interface{}) *Extra {
	e.data[key] = value
	return e
}

func (e *Extra) ToMap() map[string]interface{} {
	return e.data
}
