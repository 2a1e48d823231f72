package httpadapter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/couchcryptid/brew-water-service/internal/domain"
)

// formValue accepts a JSON number or string, mirroring a calculator input
// field. null reads as an empty field.
type formValue string

func (v *formValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*v = ""
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = formValue(s)
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("expected a number or a string, got %s", data)
		}
		*v = formValue(n.String())
	}
	return nil
}

// simulateRequest is the body of POST /api/v1/simulate. Either base or
// network_code supplies the starting profile.
type simulateRequest struct {
	NetworkCode  string               `json:"network_code" binding:"required_without=Base"`
	Base         domain.IonProfile    `json:"base" binding:"required_without=NetworkCode"`
	Additions    map[string]formValue `json:"additions" binding:"omitempty,dive,keys,saltid,endkeys"`
	VolumeLiters formValue            `json:"volume_liters" binding:"required"`
}

func (r simulateRequest) additions() domain.Additions {
	form := make(map[string]string, len(r.Additions))
	for id, v := range r.Additions {
		form[id] = string(v)
	}
	return domain.ParseAdditions(form)
}

var (
	registerOnce sync.Once
	registerErr  error
)

// registerValidations adds the "saltid" tag to gin's validator once per
// process.
func registerValidations() error {
	registerOnce.Do(func() {
		registerErr = registerSaltID(binding.Validator.Engine())
	})
	return registerErr
}

// registerSaltID installs the "saltid" tag, which accepts identifiers of the
// default salt table.
func registerSaltID(engine any) error {
	v, ok := engine.(*validator.Validate)
	if !ok {
		return fmt.Errorf("binding engine %T is not a *validator.Validate", engine)
	}
	if err := v.RegisterValidation("saltid", validateSaltID); err != nil {
		return fmt.Errorf("register saltid: %w", err)
	}
	return nil
}

func validateSaltID(fl validator.FieldLevel) bool {
	_, ok := domain.DefaultSalts().Lookup(fl.Field().String())
	return ok
}
