//  Copyright (c) 2021 Cisco and/or its affiliates.
//
//  Licensed under the Apache License, Version 2.0 (the "License");
//  you may not use this file except in compliance with the License.
//  You may obtain a copy of the License at:
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
//  Unless required by applicable law or agreed to in writing, software
//  distributed under the License is distributed on an "AS IS" BASIS,
//  WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//  See the License for the specific language governing permissions and
//  limitations under the License.

// Package redisdb creates clients of the Redis databases holding
// the configuration tables and the ASIC state.
package redisdb

import (
	"crypto/tls"
	"crypto/x509"
	"io/ioutil"
	"time"

	goredis "github.com/go-redis/redis"
	"github.com/pkg/errors"
)

// Databases of the switch Redis instance.
const (
	ApplDB  = 0
	AsicDB  = 1
	StateDB = 6
)

// TLS configures TLS properties
type TLS struct {
	Enabled    bool   `json:"enabled"`     // enable/disable TLS
	SkipVerify bool   `json:"skip-verify"` // whether to skip verification of server name & certificate
	Certfile   string `json:"cert-file"`   // client certificate
	Keyfile    string `json:"key-file"`    // client private key
	CAfile     string `json:"ca-file"`     // certificate authority
}

// Config configures connection to a single Redis node.
type Config struct {
	Endpoint     string        `json:"endpoint"`
	DB           int           `json:"db"`
	Password     string        `json:"password"`
	DialTimeout  time.Duration `json:"dial-timeout"`
	ReadTimeout  time.Duration `json:"read-timeout"`
	WriteTimeout time.Duration `json:"write-timeout"`
	PoolSize     int           `json:"pool-size"`
	TLS          TLS           `json:"tls"`
}

// DefaultConfig returns config of the local Redis instance.
func DefaultConfig(db int) Config {
	return Config{
		Endpoint:    "127.0.0.1:6379",
		DB:          db,
		DialTimeout: 5 * time.Second,
	}
}

func createTLSConfig(config TLS) (*tls.Config, error) {
	tlsConfig := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: config.SkipVerify,
	}
	if config.Certfile != "" && config.Keyfile != "" {
		cert, err := tls.LoadX509KeyPair(config.Certfile, config.Keyfile)
		if err != nil {
			return nil, errors.Wrap(err, "loading client certificate failed")
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}
	if config.CAfile != "" {
		pem, err := ioutil.ReadFile(config.CAfile)
		if err != nil {
			return nil, errors.Wrap(err, "reading CA file failed")
		}
		cp := x509.NewCertPool()
		if !cp.AppendCertsFromPEM(pem) {
			return nil, errors.Errorf("no certificates found in %s", config.CAfile)
		}
		tlsConfig.RootCAs = cp
	}
	return tlsConfig, nil
}

// NewClient creates client for the configured Redis node and checks
// the connection.
func NewClient(config Config) (*goredis.Client, error) {
	var tlsConfig *tls.Config
	if config.TLS.Enabled {
		var err error
		if tlsConfig, err = createTLSConfig(config.TLS); err != nil {
			return nil, err
		}
	}
	client := goredis.NewClient(&goredis.Options{
		Network: "tcp",
		Addr:    config.Endpoint,

		// Database to be selected after connecting to the server
		DB: config.DB,

		// TLS Config to use. When set TLS will be negotiated.
		TLSConfig: tlsConfig,

		Password:     config.Password,
		DialTimeout:  config.DialTimeout,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		PoolSize:     config.PoolSize,
	})
	if err := client.Ping().Err(); err != nil {
		client.Close()
		return nil, errors.Wrapf(err, "connecting to redis %s (db %d) failed", config.Endpoint, config.DB)
	}
	return client, nil
}
