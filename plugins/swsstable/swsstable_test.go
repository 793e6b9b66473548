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

package swsstable

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/go-redis/redis"
	. "github.com/onsi/gomega"

	"go.ligato.io/orchagent/pkg/swss"
)

var ctx = context.Background()

func vniFields(vni string) swss.Fields {
	return swss.Fields{{Field: "vni", Value: vni}}
}

func TestLocalTable(t *testing.T) {
	RegisterTestingT(t)
	table := NewLocalTable("DASH_VNET_TABLE")

	Expect(table.Set(ctx, "Vnet1", vniFields("100"))).To(Succeed())
	Expect(table.Del(ctx, "Vnet2")).To(Succeed())
	Eventually(table.Ready()).Should(Receive())

	records, err := table.Pops(ctx)
	Expect(err).ToNot(HaveOccurred())
	Expect(records).To(Equal([]swss.KeyOpFieldsValues{
		{Key: "Vnet1", Op: swss.Set, Fields: vniFields("100")},
		{Key: "Vnet2", Op: swss.Del},
	}))

	records, _ = table.Pops(ctx)
	Expect(records).To(BeEmpty())

	Expect(table.Close()).To(Succeed())
	Expect(table.Set(ctx, "Vnet1", vniFields("100"))).ToNot(Succeed())
}

func TestWriteRecords(t *testing.T) {
	RegisterTestingT(t)
	table := NewLocalTable("DASH_VNET_TABLE")

	err := WriteRecords(ctx, table, []swss.KeyOpFieldsValues{
		{Key: "Vnet1", Op: swss.Set, Fields: vniFields("100")},
		{Key: "Vnet1", Op: "GET"},
	})
	Expect(err).To(MatchError(ContainSubstring("unknown operation")))

	records, _ := table.Pops(ctx)
	Expect(records).To(HaveLen(1))
}

func redisClient(t *testing.T) (*miniredis.Miniredis, *goredis.Client) {
	RegisterTestingT(t)
	s, err := miniredis.Run()
	Expect(err).ToNot(HaveOccurred())
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	return s, client
}

func TestRedisStateTable(t *testing.T) {
	s, client := redisClient(t)
	defer s.Close()
	defer client.Close()

	consumer, err := NewConsumerStateTable(client, "DASH_VNET_TABLE", nil)
	Expect(err).ToNot(HaveOccurred())
	defer consumer.Close()

	// consumer is ready right after subscription
	Eventually(consumer.Ready()).Should(Receive())
	records, err := consumer.Pops(ctx)
	Expect(err).ToNot(HaveOccurred())
	Expect(records).To(BeEmpty())

	producer := NewProducerStateTable(client, "DASH_VNET_TABLE")
	Expect(producer.Set(ctx, "Vnet2", vniFields("200"))).To(Succeed())
	Expect(producer.Set(ctx, "Vnet1", vniFields("100"))).To(Succeed())
	Expect(s.Exists("_DASH_VNET_TABLE:Vnet1")).To(BeTrue())
	Expect(s.IsMember("DASH_VNET_TABLE_KEY_SET", "Vnet1")).To(BeTrue())

	Eventually(consumer.Ready(), time.Second).Should(Receive())
	records, err = consumer.Pops(ctx)
	Expect(err).ToNot(HaveOccurred())
	Expect(records).To(Equal([]swss.KeyOpFieldsValues{
		{Key: "Vnet1", Op: swss.Set, Fields: vniFields("100")},
		{Key: "Vnet2", Op: swss.Set, Fields: vniFields("200")},
	}))
	Expect(s.Exists("_DASH_VNET_TABLE:Vnet1")).To(BeFalse())
	Expect(s.HGet("DASH_VNET_TABLE:Vnet1", "vni")).To(Equal("100"))

	// deleted and written again before the pop
	Expect(producer.Del(ctx, "Vnet1")).To(Succeed())
	Expect(producer.Set(ctx, "Vnet1", vniFields("101"))).To(Succeed())
	Expect(producer.Del(ctx, "Vnet2")).To(Succeed())

	records, err = consumer.Pops(ctx)
	Expect(err).ToNot(HaveOccurred())
	Expect(records).To(Equal([]swss.KeyOpFieldsValues{
		{Key: "Vnet1", Op: swss.Del},
		{Key: "Vnet1", Op: swss.Set, Fields: vniFields("101")},
		{Key: "Vnet2", Op: swss.Del},
	}))
	Expect(s.Exists("DASH_VNET_TABLE:Vnet2")).To(BeFalse())
	Expect(s.HGet("DASH_VNET_TABLE:Vnet1", "vni")).To(Equal("101"))

	Expect(producer.Set(ctx, "Vnet3", nil)).ToNot(Succeed())
}
