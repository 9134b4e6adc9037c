package factory

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"eli-dashboard/internal/config"
)

func TestDeploymentInfoHasAuth(t *testing.T) {
	tests := []struct {
		name string
		auth config.AuthConfig
		want bool
	}{
		{"nothing set", config.AuthConfig{}, false},
		{"jwt secret only", config.AuthConfig{JWTSecret: "secret"}, false},
		{"plain password", config.AuthConfig{Password: "pw"}, true},
		{"password hash", config.AuthConfig{PasswordHash: "$argon2id$v=19$m=8,t=1,p=1$c2FsdA$aGFzaA"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{Environment: "test", Auth: tt.auth}
			info := deploymentInfo(cfg, true, false)
			assert.Equal(t, tt.want, info.HasAuth)
			assert.True(t, info.HasDatabase)
			assert.False(t, info.HasNeo4j)
			assert.Equal(t, "test", info.Environment)
		})
	}
}
