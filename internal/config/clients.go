package config

import (
	"fmt"

	"github.com/openkcm/common-sdk/pkg/commoncfg"
	"github.com/redis/go-redis/v9"
	"github.com/valkey-io/valkey-go"
)

// ValKeyClientOption resolves the source references of the valkey section.
func ValKeyClientOption(conf ValKey) (valkey.ClientOption, error) {
	host, err := commoncfg.LoadValueFromSourceRef(conf.Host)
	if err != nil {
		return valkey.ClientOption{}, fmt.Errorf("loading valkey host: %w", err)
	}

	user, err := loadOptional(conf.User)
	if err != nil {
		return valkey.ClientOption{}, fmt.Errorf("loading valkey username: %w", err)
	}

	password, err := loadOptional(conf.Password)
	if err != nil {
		return valkey.ClientOption{}, fmt.Errorf("loading valkey password: %w", err)
	}

	opts := valkey.ClientOption{
		InitAddress: []string{string(host)},
		Username:    string(user),
		Password:    string(password),
	}

	if conf.SecretRef.Type == commoncfg.MTLSSecretType {
		tlsConfig, err := commoncfg.LoadMTLSConfig(&conf.SecretRef.MTLS)
		if err != nil {
			return valkey.ClientOption{}, fmt.Errorf("loading valkey mTLS config from secret ref: %w", err)
		}

		opts.TLSConfig = tlsConfig
	}

	return opts, nil
}

// RedisOptions resolves the source references of the redis section.
func RedisOptions(conf Redis) (*redis.Options, error) {
	address, err := commoncfg.LoadValueFromSourceRef(conf.Address)
	if err != nil {
		return nil, fmt.Errorf("loading redis address: %w", err)
	}

	opts := &redis.Options{
		Addr: string(address),
		DB:   conf.DB,
	}

	password, err := loadOptional(conf.Password)
	if err != nil {
		return nil, fmt.Errorf("loading redis password: %w", err)
	}
	opts.Password = string(password)

	return opts, nil
}

// loadOptional resolves ref, treating an unset reference as empty.
func loadOptional(ref commoncfg.SourceRef) ([]byte, error) {
	if ref.Source == "" {
		return nil, nil
	}

	return commoncfg.LoadValueFromSourceRef(ref)
}
