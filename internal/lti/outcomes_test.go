package lti

import (
	"encoding/xml"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildReplaceResult(t *testing.T) {
	body, err := BuildReplaceResult("msg-1", "sourced-abc", "0.8")
	require.NoError(t, err)

	payload := string(body)
	assert.True(t, strings.HasPrefix(payload, xml.Header))
	assert.Contains(t, payload, `xmlns="http://www.imsglobal.org/services/ltiv1p1/xsd/imsoms_v1p0"`)
	assert.Contains(t, payload, "<imsx_version>V1.0</imsx_version>")
	assert.Contains(t, payload, "<imsx_messageIdentifier>msg-1</imsx_messageIdentifier>")
	assert.Contains(t, payload, "<sourcedId>sourced-abc</sourcedId>")
	assert.Contains(t, payload, "<textString>0.8</textString>")

	// The envelope is well formed XML end to end.
	var probe poxRequestEnvelope
	require.NoError(t, xml.Unmarshal(body, &probe))
	assert.Equal(t, "sourced-abc", probe.Body.ReplaceResult.ResultRecord.SourcedGUID.SourcedID)
	assert.Equal(t, "0.8", probe.Body.ReplaceResult.ResultRecord.Result.ResultScore.TextString)
}

func TestBuildReplaceResultEscapesSourcedID(t *testing.T) {
	body, err := BuildReplaceResult("msg-1", `a<b>&"quote"`, "1")
	require.NoError(t, err)

	var probe poxRequestEnvelope
	require.NoError(t, xml.Unmarshal(body, &probe))
	assert.Equal(t, `a<b>&"quote"`, probe.Body.ReplaceResult.ResultRecord.SourcedGUID.SourcedID)
}

const successResponse = `<?xml version="1.0" encoding="UTF-8"?>
<imsx_POXEnvelopeResponse xmlns="http://www.imsglobal.org/services/ltiv1p1/xsd/imsoms_v1p0">
  <imsx_POXHeader>
    <imsx_POXResponseHeaderInfo>
      <imsx_version>V1.0</imsx_version>
      <imsx_messageIdentifier>4560</imsx_messageIdentifier>
      <imsx_statusInfo>
        <imsx_codeMajor>success</imsx_codeMajor>
        <imsx_severity>status</imsx_severity>
        <imsx_description>Score for sourced-abc is now 0.8</imsx_description>
      </imsx_statusInfo>
    </imsx_POXResponseHeaderInfo>
  </imsx_POXHeader>
  <imsx_POXBody>
    <replaceResultResponse/>
  </imsx_POXBody>
</imsx_POXEnvelopeResponse>`

func TestParseOutcomeResponse(t *testing.T) {
	t.Run("success envelope", func(t *testing.T) {
		assert.NoError(t, ParseOutcomeResponse([]byte(successResponse)))
	})

	t.Run("failure envelope", func(t *testing.T) {
		failure := strings.Replace(successResponse, "success", "failure", 1)
		err := ParseOutcomeResponse([]byte(failure))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failure")
	})

	t.Run("unparseable body", func(t *testing.T) {
		assert.Error(t, ParseOutcomeResponse([]byte("not xml at all")))
	})
}
