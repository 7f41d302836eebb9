package error

//
// Copyright (c) 2019 ARM Limited.
//
// SPDX-License-Identifier: MIT
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to
// deal in the Software without restriction, including without limitation the
// rights to use, copy, modify, merge, publish, distribute, sublicense, and/or
// sell copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.
//

import (
	"encoding/json"
)

type GridError struct {
	ErrorMessage string `json:"message"`
	ErrorCode    int    `json:"code"`
}

func (gridError GridError) Error() string {
	return gridError.ErrorMessage
}

func (gridError GridError) Code() int {
	return gridError.ErrorCode
}

func (gridError GridError) JSON() []byte {
	encoded, _ := json.Marshal(&gridError)

	return encoded
}

func GridErrorFromJSON(encodedError []byte) (*GridError, error) {
	var gridError GridError

	if err := json.Unmarshal(encodedError, &gridError); err != nil {
		return nil, err
	}

	return &gridError, nil
}

const (
	eEMPTY             = iota
	eNO_QUORUM         = iota
	eTIMEOUT           = iota
	eCANCELLED         = iota
	eCLOSED            = iota
	eSITE_OFFLINE      = iota
	eUNKNOWN_SITE      = iota
	eUNKNOWN_MEMBER    = iota
	eSUSPECT           = iota
	eUNAVAILABLE       = iota
	eOUTDATED_TOPOLOGY = iota
	eREMOTE            = iota
	eCORRUPTED         = iota
	eSTORAGE           = iota
	eMALFORMED         = iota
	eNO_SUCH_KEY       = iota
)

var (
	EEmpty            = GridError{"Parameter was empty or nil", eEMPTY}
	ENoQuorum         = GridError{"Quorum was not reached among the destinations of this request", eNO_QUORUM}
	ETimeout          = GridError{"Timed out waiting for responses", eTIMEOUT}
	ECancelled        = GridError{"The request was cancelled", eCANCELLED}
	EClosed           = GridError{"The component has been closed", eCLOSED}
	ESiteOffline      = GridError{"The backup site is offline", eSITE_OFFLINE}
	EUnknownSite      = GridError{"The backup site is not known", eUNKNOWN_SITE}
	EUnknownMember    = GridError{"The destination is not a member of the cluster", eUNKNOWN_MEMBER}
	ESuspect          = GridError{"The destination is suspected of having left the cluster", eSUSPECT}
	EUnavailable      = GridError{"The data is not available in the current partition", eUNAVAILABLE}
	EOutdatedTopology = GridError{"The request was issued against an outdated topology", eOUTDATED_TOPOLOGY}
	ERemote           = GridError{"The destination raised an error while executing the command", eREMOTE}
	ECorrupted        = GridError{"The journal is corrupted", eCORRUPTED}
	EStorage          = GridError{"The storage driver experienced an error", eSTORAGE}
	EMalformed        = GridError{"The message was malformed", eMALFORMED}
	ENoSuchKey        = GridError{"No member holds the key", eNO_SUCH_KEY}
)

// ErrorFromCode maps a wire error code back to its sentinel value
func ErrorFromCode(code int) (GridError, bool) {
	switch code {
	case eEMPTY:
		return EEmpty, true
	case eNO_QUORUM:
		return ENoQuorum, true
	case eTIMEOUT:
		return ETimeout, true
	case eCANCELLED:
		return ECancelled, true
	case eCLOSED:
		return EClosed, true
	case eSITE_OFFLINE:
		return ESiteOffline, true
	case eUNKNOWN_SITE:
		return EUnknownSite, true
	case eUNKNOWN_MEMBER:
		return EUnknownMember, true
	case eSUSPECT:
		return ESuspect, true
	case eUNAVAILABLE:
		return EUnavailable, true
	case eOUTDATED_TOPOLOGY:
		return EOutdatedTopology, true
	case eREMOTE:
		return ERemote, true
	case eCORRUPTED:
		return ECorrupted, true
	case eSTORAGE:
		return EStorage, true
	case eMALFORMED:
		return EMalformed, true
	case eNO_SUCH_KEY:
		return ENoSuchKey, true
	}

	return GridError{}, false
}
