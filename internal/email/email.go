// Package email delivers account mail: password reset codes and change notices.
package email

import (
	"context"
	"fmt"
	"time"
)

// Service defines the interface for sending emails.
type Service interface {
	// SendPasswordResetCode mails the 4 digit code and how long it stays valid.
	SendPasswordResetCode(ctx context.Context, to, code string, ttl time.Duration) error

	// SendPasswordChangedEmail tells the user their password was just changed.
	SendPasswordChangedEmail(ctx context.Context, to string) error
}

// message is a rendered email ready for any transport
type message struct {
	Subject string
	Text    string
	HTML    string
}

func resetCodeMessage(code string, ttl time.Duration) message {
	minutes := int(ttl.Round(time.Minute) / time.Minute)
	return message{
		Subject: "[GreenCoach] 비밀번호 재설정 인증코드",
		Text: fmt.Sprintf(`GreenCoach 비밀번호 재설정 인증코드입니다.

인증코드: %s

이 코드는 %d분 후 만료됩니다.
본인이 요청하지 않았다면 이 메일을 무시하세요.`, code, minutes),
		HTML: fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: Arial, sans-serif; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
    <h2 style="color: #2e7d32;">비밀번호 재설정</h2>
    <p>아래 인증코드를 앱에 입력하세요.</p>
    <p style="font-size: 32px; letter-spacing: 8px; font-weight: bold; text-align: center;">%s</p>
    <p style="color: #666; font-size: 14px;">이 코드는 %d분 후 만료됩니다. 본인이 요청하지 않았다면 이 메일을 무시하세요.</p>
</body>
</html>`, code, minutes),
	}
}

func passwordChangedMessage() message {
	return message{
		Subject: "[GreenCoach] 비밀번호가 변경되었습니다",
		Text: `GreenCoach 계정의 비밀번호가 변경되었습니다.

본인이 변경하지 않았다면 즉시 고객센터로 문의하세요.
보안을 위해 모든 기기에서 로그아웃되었습니다.`,
		HTML: `<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: Arial, sans-serif; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
    <h2 style="color: #2e7d32;">비밀번호 변경 완료</h2>
    <p>GreenCoach 계정의 비밀번호가 변경되었습니다.</p>
    <p style="background-color: #fff3cd; border-left: 4px solid #ffc107; padding: 15px;">본인이 변경하지 않았다면 즉시 고객센터로 문의하세요.</p>
    <p style="color: #666; font-size: 14px;">보안을 위해 모든 기기에서 로그아웃되었습니다.</p>
</body>
</html>`,
	}
}
