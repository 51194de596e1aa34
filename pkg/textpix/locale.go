package textpix

import (
	"time"

	"github.com/jlrickert/textpix/pkg/record"
)

// Content written into records when the AI service cannot supply it. These
// end up in user-facing data, so they use the service language.
const (
	DescriptionSkipped = "이미지가 너무 커서 자동 설명 생성을 건너뛰었습니다."
	DescriptionFailed  = "이미지 설명 생성에 실패했습니다."

	defaultTitleGenerated   = "생성된 이미지"
	defaultTitleNew         = "새로운 이미지"
	defaultTitleDatedPrefix = "이미지 "
)

// DefaultTitles returns the three fallback title suggestions for day.
func DefaultTitles(day time.Time) []string {
	return []string{
		defaultTitleGenerated,
		defaultTitleNew,
		defaultTitleDatedPrefix + day.Local().Format(record.DateLayout),
	}
}

// Operation result messages.
const (
	MsgCreated         = "image generated"
	MsgSaved           = "image saved"
	MsgRegenerated     = "image regenerated"
	MsgTextUpdated     = "text updated"
	MsgMetadataUpdated = "metadata updated"
	MsgDeleted         = "image deleted"
	MsgAlreadyDeleted  = "image already deleted"
)
