package presence

import (
	"fmt"
	"strconv"

	"github.com/lucasb-eyer/go-colorful"
)

// UserHue 사용자 ID -> 고정 hue [0, 360)
// 모든 클라이언트가 같은 값을 계산하므로 서버 색상 테이블이 필요 없다
func UserHue(userID int64) int {
	var h int64
	for _, c := range strconv.FormatInt(userID, 10) {
		// 32비트 문자열 해시: h = c + (h<<5) - h (int32 시프트)
		h = int64(c) + int64(int32(h)<<5) - h
	}
	if h < 0 {
		h = -h
	}
	return int(h % 360)
}

// UserColor 커서/선택 테두리 CSS 색
func UserColor(userID int64) string {
	return fmt.Sprintf("hsl(%d, 70%%, 50%%)", UserHue(userID))
}

// UserColorHex #rrggbb (hsl 미지원 터미널용)
func UserColorHex(userID int64) string {
	return colorful.Hsl(float64(UserHue(userID)), 0.7, 0.5).Hex()
}
