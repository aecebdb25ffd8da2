// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Backup License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package protocol

import "fmt"

// Field widths for ServerInfo, matching the RoRnet wire layout.
const (
	serverInfoProtocolVersionWidth = 20
	serverInfoTerrainNameWidth     = 128
	serverInfoServerNameWidth      = 128
	serverInfoInfoWidth            = 4096

	// ServerInfoSize is the total encoded size of a ServerInfo payload.
	ServerInfoSize = serverInfoProtocolVersionWidth +
		serverInfoTerrainNameWidth +
		serverInfoServerNameWidth +
		1 + // has_password
		serverInfoInfoWidth
)

// ServerInfo is the payload of the server's HELLO response to the
// client's HELLO.
type ServerInfo struct {
	ProtocolVersion string
	TerrainName     string
	ServerName      string
	HasPassword     bool
	Info            string
}

// DecodeServerInfo parses a ServerInfo payload.
func DecodeServerInfo(data []byte) (ServerInfo, error) {
	if len(data) != ServerInfoSize {
		return ServerInfo{}, fmt.Errorf("%w: server info expected %d bytes, got %d",
			ErrTruncatedFrame, ServerInfoSize, len(data))
	}

	off := 0
	protocolVersion := getFixedString(data[off : off+serverInfoProtocolVersionWidth])
	off += serverInfoProtocolVersionWidth
	terrainName := getFixedString(data[off : off+serverInfoTerrainNameWidth])
	off += serverInfoTerrainNameWidth
	serverName := getFixedString(data[off : off+serverInfoServerNameWidth])
	off += serverInfoServerNameWidth
	hasPassword := data[off] != 0
	off++
	info := getFixedString(data[off : off+serverInfoInfoWidth])

	return ServerInfo{
		ProtocolVersion: protocolVersion,
		TerrainName:     terrainName,
		ServerName:      serverName,
		HasPassword:     hasPassword,
		Info:            info,
	}, nil
}

// Encode packs si into its wire representation.
func (si ServerInfo) Encode() ([]byte, error) {
	buf := make([]byte, ServerInfoSize)
	off := 0

	if err := putFixedString(buf[off:off+serverInfoProtocolVersionWidth], si.ProtocolVersion, serverInfoProtocolVersionWidth); err != nil {
		return nil, fmt.Errorf("encoding protocol_version: %w", err)
	}
	off += serverInfoProtocolVersionWidth

	if err := putFixedString(buf[off:off+serverInfoTerrainNameWidth], si.TerrainName, serverInfoTerrainNameWidth); err != nil {
		return nil, fmt.Errorf("encoding terrain_name: %w", err)
	}
	off += serverInfoTerrainNameWidth

	if err := putFixedString(buf[off:off+serverInfoServerNameWidth], si.ServerName, serverInfoServerNameWidth); err != nil {
		return nil, fmt.Errorf("encoding server_name: %w", err)
	}
	off += serverInfoServerNameWidth

	if si.HasPassword {
		buf[off] = 1
	}
	off++

	if err := putFixedString(buf[off:off+serverInfoInfoWidth], si.Info, serverInfoInfoWidth); err != nil {
		return nil, fmt.Errorf("encoding info: %w", err)
	}

	return buf, nil
}
