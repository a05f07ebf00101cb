// Package lti implements the LTI 1.1 Basic Outcomes profile: the signed
// replaceResult POX envelope the service POSTs to the LMS grade-passback
// callback.
package lti

import (
	"encoding/xml"
	"fmt"
)

const poxNamespace = "http://www.imsglobal.org/services/ltiv1p1/xsd/imsoms_v1p0"

type poxRequestEnvelope struct {
	XMLName xml.Name         `xml:"imsx_POXEnvelopeRequest"`
	XMLNS   string           `xml:"xmlns,attr"`
	Header  poxRequestHeader `xml:"imsx_POXHeader"`
	Body    poxRequestBody   `xml:"imsx_POXBody"`
}

type poxRequestHeader struct {
	Info poxRequestHeaderInfo `xml:"imsx_POXRequestHeaderInfo"`
}

type poxRequestHeaderInfo struct {
	Version           string `xml:"imsx_version"`
	MessageIdentifier string `xml:"imsx_messageIdentifier"`
}

type poxRequestBody struct {
	ReplaceResult replaceResultRequest `xml:"replaceResultRequest"`
}

type replaceResultRequest struct {
	ResultRecord resultRecord `xml:"resultRecord"`
}

type resultRecord struct {
	SourcedGUID sourcedGUID `xml:"sourcedGUID"`
	Result      result      `xml:"result"`
}

type sourcedGUID struct {
	SourcedID string `xml:"sourcedId"`
}

type result struct {
	ResultScore resultScore `xml:"resultScore"`
}

type resultScore struct {
	Language   string `xml:"language"`
	TextString string `xml:"textString"`
}

// BuildReplaceResult renders the replaceResult envelope for one student. The
// grade must already be formatted as a decimal string in [0, 1].
func BuildReplaceResult(messageID, sourcedID, grade string) ([]byte, error) {
	envelope := poxRequestEnvelope{
		XMLNS: poxNamespace,
		Header: poxRequestHeader{
			Info: poxRequestHeaderInfo{
				Version:           "V1.0",
				MessageIdentifier: messageID,
			},
		},
		Body: poxRequestBody{
			ReplaceResult: replaceResultRequest{
				ResultRecord: resultRecord{
					SourcedGUID: sourcedGUID{SourcedID: sourcedID},
					Result: result{
						ResultScore: resultScore{
							Language:   "en",
							TextString: grade,
						},
					},
				},
			},
		},
	}

	body, err := xml.Marshal(envelope)
	if err != nil {
		return nil, fmt.Errorf("marshal replaceResult envelope: %w", err)
	}
	return append([]byte(xml.Header), body...), nil
}

type poxResponseEnvelope struct {
	XMLName xml.Name `xml:"imsx_POXEnvelopeResponse"`
	Header  struct {
		Info struct {
			StatusInfo struct {
				CodeMajor   string `xml:"imsx_codeMajor"`
				Description string `xml:"imsx_description"`
			} `xml:"imsx_statusInfo"`
		} `xml:"imsx_POXResponseHeaderInfo"`
	} `xml:"imsx_POXHeader"`
}

// ParseOutcomeResponse inspects the LMS response envelope. A 200 from the LMS
// still carries a failure codeMajor when the sourcedid has expired, so status
// alone is not enough.
func ParseOutcomeResponse(body []byte) error {
	var envelope poxResponseEnvelope
	if err := xml.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("parse outcome response: %w", err)
	}
	status := envelope.Header.Info.StatusInfo
	if status.CodeMajor != "success" {
		return fmt.Errorf("outcome rejected: %s (%s)", status.CodeMajor, status.Description)
	}
	return nil
}
