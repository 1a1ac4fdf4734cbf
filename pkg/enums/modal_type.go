package enums

import "fmt"

// ModalType styles a transient notification.
type ModalType string

const (
	ModalTypeInfo    ModalType = "info"
	ModalTypeSuccess ModalType = "success"
	ModalTypeWarning ModalType = "warning"
	ModalTypeError   ModalType = "error"
)

var validModalTypes = []ModalType{
	ModalTypeInfo,
	ModalTypeSuccess,
	ModalTypeWarning,
	ModalTypeError,
}

// IsValid reports whether the value is a known ModalType.
func (m ModalType) IsValid() bool {
	for _, candidate := range validModalTypes {
		if candidate == m {
			return true
		}
	}
	return false
}

// ParseModalType converts raw input into a ModalType.
func ParseModalType(value string) (ModalType, error) {
	for _, candidate := range validModalTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid modal type %q", value)
}
