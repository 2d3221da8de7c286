package services

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"sort"
	"strings"

	"github.com/EO-DataHub/eodhp-directory-services/models"
	"github.com/go-playground/validator/v10"
)

// maxBodyBytes bounds the size of any request body.
const maxBodyBytes = 1 << 20

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()

	// Report fields by their JSON key
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// userPayload mirrors models.User with pointer fields so an absent key can be
// told apart from an empty value. Field order sets the order missing keys are
// reported in.
type userPayload struct {
	FirstName *string   `json:"first_name" validate:"required"`
	LastName  *string   `json:"last_name" validate:"required"`
	UserID    *string   `json:"userid" validate:"required"`
	Groups    *[]*string `json:"groups" validate:"required"`
}

var userKeys = map[string]struct{}{
	"userid":     {},
	"first_name": {},
	"last_name":  {},
	"groups":     {},
}

// userKeyOrder is the order present-but-null keys are reported in.
var userKeyOrder = []string{"first_name", "last_name", "userid", "groups"}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func fieldTypeError(key string) error {
	if key == "groups" {
		return invalidUser("Field 'groups' must be a json array of strings.")
	}
	return invalidUser("Field '%s' must be a string.", key)
}

// PayloadError is a malformed request body.
type PayloadError struct {
	msg string
}

func (e *PayloadError) Error() string { return e.msg }

func invalidUser(format string, args ...interface{}) error {
	return &PayloadError{msg: "Invalid user: " + fmt.Sprintf(format, args...)}
}

func readBody(r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return nil, &PayloadError{msg: "Failed to read request body."}
	}
	if len(body) > maxBodyBytes {
		return nil, &PayloadError{msg: "Request body too large."}
	}
	return body, nil
}

// decodeUser parses a user record. The object must carry exactly the keys
// userid, first_name, last_name and groups, and groups must be an array of
// strings.
func decodeUser(body []byte) (models.User, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil || fields == nil {
		return models.User{}, invalidUser("User entry is not a json object.")
	}

	var unexpected []string
	for key := range fields {
		if _, ok := userKeys[key]; !ok {
			unexpected = append(unexpected, key)
		}
	}
	if len(unexpected) > 0 {
		sort.Strings(unexpected)
		return models.User{}, invalidUser("Unexpected field: '%s'.", unexpected[0])
	}

	// A key set to null is present, so it is a type error rather than a missing key.
	for _, key := range userKeyOrder {
		if raw, ok := fields[key]; ok && isNull(raw) {
			return models.User{}, fieldTypeError(key)
		}
	}

	var payload userPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			if typeErr.Field == "groups" || strings.HasPrefix(typeErr.Field, "groups.") {
				return models.User{}, fieldTypeError("groups")
			}
			return models.User{}, fieldTypeError(typeErr.Field)
		}
		return models.User{}, invalidUser("User entry is not a json object.")
	}

	if err := validate.Struct(payload); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return models.User{}, invalidUser("User record missing expected key '%s'.", verrs[0].Field())
		}
		return models.User{}, invalidUser("%s", err.Error())
	}

	groups := make([]string, 0, len(*payload.Groups))
	for _, g := range *payload.Groups {
		if g == nil {
			return models.User{}, fieldTypeError("groups")
		}
		groups = append(groups, *g)
	}

	return models.User{
		UserID:    *payload.UserID,
		FirstName: *payload.FirstName,
		LastName:  *payload.LastName,
		Groups:    groups,
	}, nil
}

// decodeMembers parses a group member list. An empty body is an empty list
// only when allowEmpty is set.
func decodeMembers(body []byte, allowEmpty bool) ([]string, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		if allowEmpty {
			return []string{}, nil
		}
		return nil, &PayloadError{msg: "Users entry is not a json array."}
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil || raw == nil {
		return nil, &PayloadError{msg: "Users entry is not a json array."}
	}

	members := make([]string, 0, len(raw))
	for _, item := range raw {
		var userID *string
		if err := json.Unmarshal(item, &userID); err != nil || userID == nil {
			return nil, &PayloadError{msg: fmt.Sprintf("User names must be strings. Received: '%s'", string(item))}
		}
		members = append(members, *userID)
	}
	return members, nil
}
