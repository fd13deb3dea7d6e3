package auth

import (
	"fmt"
	"strings"

	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"

	"github.com/SAP-F-2025/student-records-service/internal/config"
	"github.com/SAP-F-2025/student-records-service/internal/models"
)

// ExternalIdentity is what a federated token says about its holder
type ExternalIdentity struct {
	Subject     string
	Username    string
	Email       string
	DisplayName string
	Role        models.UserRole
}

// CasdoorVerifier validates tokens minted by a Casdoor instance
type CasdoorVerifier struct {
	client *casdoorsdk.Client
}

func NewCasdoorVerifier(cfg config.CasdoorConfig) *CasdoorVerifier {
	client := casdoorsdk.NewClient(
		cfg.Endpoint,
		cfg.ClientID,
		cfg.ClientSecret,
		cfg.Cert,
		cfg.Organization,
		cfg.Application,
	)
	return &CasdoorVerifier{client: client}
}

// Verify parses the token and maps its claims to an ExternalIdentity
func (v *CasdoorVerifier) Verify(token string) (*ExternalIdentity, error) {
	claims, err := v.client.ParseJwtToken(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.User.Name == "" {
		return nil, fmt.Errorf("%w: token has no user name", ErrInvalidToken)
	}

	return &ExternalIdentity{
		Subject:     claims.Id,
		Username:    claims.User.Name,
		Email:       claims.User.Email,
		DisplayName: claims.User.DisplayName,
		Role:        MapExternalRole(claims.User.Type),
	}, nil
}

// MapExternalRole maps a Casdoor user type onto a local role group
func MapExternalRole(userType string) models.UserRole {
	switch strings.ToLower(userType) {
	case "admin", "administrator":
		return models.RoleAdmin
	case "teacher", "instructor", "educator":
		return models.RoleTeacher
	default:
		return models.RoleStudent
	}
}
