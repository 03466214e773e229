// Package config defines the necessary types to configure the application.
// An example config file config.yaml is provided in the repository.
package config

import (
	"time"

	"github.com/openkcm/common-sdk/pkg/commoncfg"
)

type Config struct {
	commoncfg.BaseConfig `mapstructure:",squash" yaml:",inline"`

	HTTP HTTPServer `yaml:"http"`

	ValKey       ValKey       `yaml:"valkey"`
	Redis        Redis        `yaml:"redis"`
	SessionStore SessionStore `yaml:"sessionStore"`
	LTI          LTI          `yaml:"lti" validate:"required"`
	KeyRing      KeyRing      `yaml:"keyRing"`
	Cookies      Cookies      `yaml:"cookies"`
	KeyRotator   KeyRotator   `yaml:"keyRotator"`
}

type HTTPServer struct {
	Address         string        `yaml:"address" default:":8080" validate:"required"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" default:"5s"`
}

type ValKey struct {
	Host      commoncfg.SourceRef `yaml:"host"`
	User      commoncfg.SourceRef `yaml:"user"`
	Password  commoncfg.SourceRef `yaml:"password"`
	SecretRef commoncfg.SecretRef `yaml:"secretRef"`
	Prefix    string              `yaml:"prefix" default:"lti-tool"`
}

type Redis struct {
	Address  commoncfg.SourceRef `yaml:"address"`
	Password commoncfg.SourceRef `yaml:"password"`
	DB       int                 `yaml:"db" validate:"gte=0"`
	Prefix   string              `yaml:"prefix" default:"lti-tool"`
}

type StoreType string

const (
	StoreTypeValKey StoreType = "valkey"
	StoreTypeRedis  StoreType = "redis"
	StoreTypeMemory StoreType = "memory"
)

type SessionStore struct {
	Type StoreType `yaml:"type" default:"valkey" validate:"oneof=valkey redis memory"`
	// Timeout bounds every call to the store.
	Timeout   time.Duration `yaml:"timeout" default:"2s" validate:"gt=0"`
	StateTTL  time.Duration `yaml:"stateTTL" default:"60s" validate:"gt=0"`
	LaunchTTL time.Duration `yaml:"launchTTL" default:"2h" validate:"gt=0"`
	// SingleUse deletes the state and nonce entries when a launch reads them.
	SingleUse bool `yaml:"singleUse" default:"true"`
}

type LTI struct {
	Issuer           string        `yaml:"issuer" validate:"required"`
	ClientID         string        `yaml:"clientID" validate:"required"`
	DeploymentID     string        `yaml:"deploymentID" validate:"required"`
	PlatformLoginURL string        `yaml:"platformLoginURL" validate:"required,url"`
	ToolLaunchURL    string        `yaml:"toolLaunchURL" validate:"required,url"`
	PlatformJWKSURL  string        `yaml:"platformJWKSURL" validate:"omitempty,url"`
	JWKSCacheTTL     time.Duration `yaml:"jwksCacheTTL" default:"5m"`
	BasePath         string        `yaml:"basePath" default:"/lti" validate:"startswith=/"`
	ClockSkew        time.Duration `yaml:"clockSkew" default:"60s" validate:"gte=0"`
	// PlatformClient is only used when PlatformJWKSURL is set.
	PlatformClient PlatformClient `yaml:"platformClient"`
}

const (
	ClientTypeMTLS     = "mtls"
	ClientTypeInsecure = "insecure"
)

// PlatformClient configures the HTTP client that fetches the platform key set.
type PlatformClient struct {
	Type    string          `yaml:"type" default:"insecure" validate:"oneof=mtls insecure"`
	MTLS    *commoncfg.MTLS `yaml:"mtls" validate:"required_if=Type mtls"`
	Timeout time.Duration   `yaml:"timeout" default:"10s" validate:"gte=0"`
}

type KeyRing struct {
	Name           string        `yaml:"name" default:"tool" validate:"required"`
	Validity       time.Duration `yaml:"validity" default:"1h"`
	RotationWindow time.Duration `yaml:"rotationWindow" default:"500s"`
	KeyBits        int           `yaml:"keyBits" default:"2048" validate:"gte=2048"`
	SyncInterval   time.Duration `yaml:"syncInterval" default:"1m" validate:"gt=0"`
}

type Cookies struct {
	// State is the template of the per-login state cookie. Its name is used
	// as a prefix followed by the state value.
	State  CookieTemplate `yaml:"state"`
	Launch CookieTemplate `yaml:"launch"`
}

type KeyRotator struct {
	TriggerInterval time.Duration `yaml:"triggerInterval" default:"1m" validate:"gt=0"`
}
