// Copyright (C) 2026 Meadow authors.
// All rights reserved. This file is part of the meadow module.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package config builds and, optionally, loads Host and Node configuration.
// Embedders are expected to construct HostConfig/NodeConfig directly with Go
// struct literals; LoadHost/LoadNode exist for embedders that prefer to
// describe a Host or Node declaratively, e.g. from a JSON file read at
// startup.
package config

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/quietlychris/meadow-sub000/pkg/merrors"
)

// Transport names one of Meadow's three equivalent transports.
type Transport string

const (
	TCP       Transport = "tcp"
	UDP       Transport = "udp"
	TLSStream Transport = "tls"
)

// HostConfig describes how to build a Host.
type HostConfig struct {
	Name        string      `json:"name"`
	Interface   string      `json:"interface"`
	Port        uint16      `json:"port"`
	StorePath   string      `json:"store_path"`
	Temporary   bool        `json:"temporary"`
	Transports  []Transport `json:"transports"`
	BufferSize  int         `json:"buffer_size"`
	MaxTopicLen int         `json:"max_topic_len"`
	CertPath    string      `json:"cert_path,omitempty"`
	KeyPath     string      `json:"key_path,omitempty"`
}

// DefaultHostConfig uses Meadow's standard defaults: loopback interface,
// port 25000, a 10 KiB listener read buffer, a 100-byte topic name ceiling,
// and all three transports enabled.
func DefaultHostConfig(name string) HostConfig {
	return HostConfig{
		Name:        name,
		Interface:   "lo",
		Port:        25000,
		StorePath:   "./" + name + ".meadow",
		Transports:  []Transport{TCP, UDP, TLSStream},
		BufferSize:  10 * 1024,
		MaxTopicLen: 100,
	}
}

// NodeConfig describes how to build a Node.
type NodeConfig struct {
	Name           string        `json:"name"`
	HostAddr       string        `json:"host_addr"`
	Transport      Transport     `json:"transport"`
	Blocking       bool          `json:"blocking"`
	SendTries      int           `json:"send_tries"`
	CertPath       string        `json:"cert_path,omitempty"`
	KeyPath        string        `json:"key_path,omitempty"`
	SubscribeEvery time.Duration `json:"subscribe_every"`
}

// perTransportBufferSize are the Node read-buffer defaults: 1 KiB for TCP,
// 2 KiB for UDP, 4 KiB for TLS-stream.
var perTransportBufferSize = map[Transport]int{
	TCP:       1024,
	UDP:       2048,
	TLSStream: 4096,
}

// BufferSize returns the Node read-buffer size for cfg's transport.
func (c NodeConfig) BufferSize() int {
	return perTransportBufferSize[c.Transport]
}

// DefaultNodeConfig targets a local Host over TCP.
func DefaultNodeConfig(name string) NodeConfig {
	return NodeConfig{
		Name:           name,
		HostAddr:       "127.0.0.1:25000",
		Transport:      TCP,
		Blocking:       false,
		SendTries:      3,
		SubscribeEvery: 100 * time.Millisecond,
	}
}

const hostConfigSchema = `{
  "type": "object",
  "required": ["name", "port"],
  "properties": {
    "name": {"type": "string", "minLength": 1},
    "interface": {"type": "string"},
    "port": {"type": "integer", "minimum": 1, "maximum": 65535},
    "store_path": {"type": "string"},
    "temporary": {"type": "boolean"},
    "transports": {"type": "array", "items": {"enum": ["tcp", "udp", "tls"]}},
    "buffer_size": {"type": "integer", "minimum": 1},
    "max_topic_len": {"type": "integer", "minimum": 1},
    "cert_path": {"type": "string"},
    "key_path": {"type": "string"}
  }
}`

const nodeConfigSchema = `{
  "type": "object",
  "required": ["name", "host_addr", "transport"],
  "properties": {
    "name": {"type": "string", "minLength": 1},
    "host_addr": {"type": "string", "minLength": 1},
    "transport": {"enum": ["tcp", "udp", "tls"]},
    "blocking": {"type": "boolean"},
    "send_tries": {"type": "integer", "minimum": 1},
    "cert_path": {"type": "string"},
    "key_path": {"type": "string"}
  }
}`

func validate(schemaSrc string, raw json.RawMessage) error {
	sch, err := jsonschema.CompileString("schema.json", schemaSrc)
	if err != nil {
		return merrors.Wrap(merrors.KindDeserialization, "compile config schema", err)
	}

	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return merrors.Wrap(merrors.KindDeserialization, "parse config json", err)
	}
	if err := sch.Validate(v); err != nil {
		return merrors.Wrap(merrors.KindDeserialization, "validate config", err)
	}
	return nil
}

// LoadHost validates raw against the Host config schema and decodes it.
func LoadHost(raw json.RawMessage) (HostConfig, error) {
	if err := validate(hostConfigSchema, raw); err != nil {
		return HostConfig{}, err
	}
	cfg := DefaultHostConfig("")
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return HostConfig{}, merrors.Wrap(merrors.KindDeserialization, "decode host config", err)
	}
	return cfg, nil
}

// LoadNode validates raw against the Node config schema and decodes it.
func LoadNode(raw json.RawMessage) (NodeConfig, error) {
	if err := validate(nodeConfigSchema, raw); err != nil {
		return NodeConfig{}, err
	}
	cfg := DefaultNodeConfig("")
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return NodeConfig{}, merrors.Wrap(merrors.KindDeserialization, "decode node config", err)
	}
	return cfg, nil
}
