package store

import (
	"errors"
	"fmt"
	"net/http"
)

// Messages returned to API callers.
const (
	MsgSuccessful   = "Successfull"
	MsgCreated      = "Created"
	MsgUpdated      = "Updated"
	MsgDeleted      = "Deleted"
	MsgNotFound     = "Not found"
	MsgAlreadyExist = "Already exist"
	MsgUnableUpdate = "Unable to update"
	MsgInvalidID    = "Invalid Id"
	MsgValidation   = "Validation error"
)

type Kind string

const (
	KindNotFound     Kind = "not_found"
	KindConflict     Kind = "conflict"
	KindUpdateFailed Kind = "update_failed"
	KindInvalid      Kind = "invalid"
	KindValidation   Kind = "validation"
)

// Error is the failure variant of every store operation. Callers branch on
// Kind with errors.Is against the sentinels below, or errors.As to read the
// status, message and per-field data.
type Error struct {
	Kind     Kind
	Status   int
	Message  string
	Data     []map[string]string
	Conflict any
	Err      error
}

var (
	ErrNotFound     = &Error{Kind: KindNotFound}
	ErrConflict     = &Error{Kind: KindConflict}
	ErrUpdateFailed = &Error{Kind: KindUpdateFailed}
	ErrInvalid      = &Error{Kind: KindInvalid}
	ErrValidation   = &Error{Kind: KindValidation}
)

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on Kind so wrapped store errors compare equal to the sentinels.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func NotFound() *Error {
	return &Error{Kind: KindNotFound, Status: http.StatusNotFound, Message: MsgNotFound}
}

func Conflict(existing any) *Error {
	return &Error{Kind: KindConflict, Status: http.StatusConflict, Message: MsgAlreadyExist, Conflict: existing}
}

func UpdateFailed() *Error {
	return &Error{Kind: KindUpdateFailed, Status: http.StatusUnprocessableEntity, Message: MsgUnableUpdate}
}

func InvalidID(err error) *Error {
	return &Error{Kind: KindInvalid, Status: http.StatusBadRequest, Message: MsgInvalidID, Err: err}
}

// Validation reports request fields that failed their rules, one map per field.
func Validation(data []map[string]string) *Error {
	return &Error{Kind: KindValidation, Status: http.StatusBadRequest, Message: MsgValidation, Data: data}
}

// Keyed attaches a per-field entry to a store error, e.g. Keyed(err, "body,state")
// yields data [{"body,state": "Not found"}]. Other errors pass through untouched.
func Keyed(err error, key string) error {
	var se *Error
	if key == "" || !errors.As(err, &se) {
		return err
	}
	msg := se.Message
	if se.Kind == KindConflict {
		msg = "Reference with same source and key already exist"
	}
	keyed := *se
	keyed.Data = append(append([]map[string]string(nil), se.Data...), map[string]string{key: msg})
	return &keyed
}
