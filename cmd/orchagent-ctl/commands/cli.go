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

package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"os"
	"time"

	goredis "github.com/go-redis/redis"
	"github.com/pkg/errors"

	"go.ligato.io/orchagent/pkg/redisdb"
	"go.ligato.io/orchagent/pkg/swss"
	"go.ligato.io/orchagent/plugins/swsstable"
)

const (
	defaultAgentAddr = "127.0.0.1:9191"
	defaultRedisAddr = "127.0.0.1:6379"
)

// Cli holds the connections and streams shared by the commands.
type Cli struct {
	out io.Writer
	err io.Writer

	AgentAddr string
	Redis     redisdb.Config
	Timeout   time.Duration

	httpClient *http.Client
	client     *goredis.Client
}

// NewCli returns Cli writing to the given streams, defaults are taken
// from the environment.
func NewCli(out, err io.Writer) *Cli {
	cli := &Cli{
		out:       out,
		err:       err,
		AgentAddr: os.Getenv("ORCHAGENT_ADDR"),
		Redis:     redisdb.DefaultConfig(redisdb.ApplDB),
		Timeout:   10 * time.Second,
	}
	if cli.AgentAddr == "" {
		cli.AgentAddr = defaultAgentAddr
	}
	if addr := os.Getenv("ORCHAGENT_REDIS"); addr != "" {
		cli.Redis.Endpoint = addr
	} else {
		cli.Redis.Endpoint = defaultRedisAddr
	}
	return cli
}

// Out returns the output stream.
func (cli *Cli) Out() io.Writer {
	return cli.out
}

// Close closes the database connection.
func (cli *Cli) Close() error {
	if cli.client == nil {
		return nil
	}
	err := cli.client.Close()
	cli.client = nil
	return err
}

func (cli *Cli) redisClient() (*goredis.Client, error) {
	if cli.client != nil {
		return cli.client, nil
	}
	client, err := redisdb.NewClient(cli.Redis)
	if err != nil {
		return nil, err
	}
	cli.client = client
	return client, nil
}

// WriteRecords writes records to the tables in order.
func (cli *Cli) WriteRecords(ctx context.Context, records []TableRecord) error {
	client, err := cli.redisClient()
	if err != nil {
		return err
	}
	producers := make(map[string]*swsstable.ProducerStateTable)
	for _, r := range records {
		producer, ok := producers[r.Table]
		if !ok {
			producer = swsstable.NewProducerStateTable(client, r.Table)
			producers[r.Table] = producer
		}
		if err := swsstable.WriteRecords(ctx, producer, []swss.KeyOpFieldsValues{r.KeyOpFieldsValues}); err != nil {
			return err
		}
	}
	return nil
}

// GetJSON queries the agent REST API and decodes the response into v.
func (cli *Cli) GetJSON(ctx context.Context, path string, v interface{}) error {
	if cli.httpClient == nil {
		cli.httpClient = &http.Client{Timeout: cli.Timeout}
	}
	url := fmt.Sprintf("http://%s%s", cli.AgentAddr, path)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := cli.httpClient.Do(req)
	if err != nil {
		return errors.Wrapf(err, "querying agent at %s failed", cli.AgentAddr)
	}
	defer resp.Body.Close()
	body, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return StatusError{Status: fmt.Sprintf("GET %s: %s", path, bytesTrim(body)), StatusCode: 2}
	}
	return errors.Wrapf(json.Unmarshal(body, v), "decoding response of %s failed", path)
}

func bytesTrim(b []byte) string {
	const max = 200
	if len(b) > max {
		b = b[:max]
	}
	return string(b)
}
