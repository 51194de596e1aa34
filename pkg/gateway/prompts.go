package gateway

import "strings"

// Instructions sent to the chat model. The service is used in Korean, so the
// instructions are too.
const (
	rewriteInstruction = "다음 텍스트 내용을 분석하고, 이를 이미지로 표현할 수 있는 상세한 프롬프트를 작성해주세요. " +
		"이미지 생성에 적합한 구체적이고 자세한 설명을 제공해주세요: "

	describeInstruction = "이 이미지를 자세히 분석하고 설명해주세요. " +
		"이미지의 내용, 색상, 구성, 분위기 등을 포함하여 상세하게 설명해주세요."
)

func titlesInstruction(text, description string) string {
	var b strings.Builder
	b.WriteString("다음 텍스트와 이미지 설명을 바탕으로 이미지에 어울리는 제목을 3개 추천해주세요.\n\n")
	b.WriteString("원본 텍스트: " + text + "\n\n")
	b.WriteString("이미지 설명: " + description + "\n\n")
	b.WriteString("제목은 각 줄에 하나씩, 번호 없이 제목만 작성해주세요. 예시:\n")
	b.WriteString("제목1\n제목2\n제목3")
	return b.String()
}
