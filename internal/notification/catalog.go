package notification

import (
	"fmt"
	"time"

	"github.com/hawiyya/hawiyya-server/internal/account"
)

// NewLoginActivity announces a login on a new device or browser.
func NewLoginActivity(lastLogin time.Time) account.Notification {
	when := lastLogin.UTC().Format(time.RFC1123)
	return account.Notification{
		Kind: "login_activity",
		Title: account.Text{
			EN: "New login to your account",
			AR: "تسجيل دخول جديد إلى حسابك",
		},
		Body: account.Text{
			EN: fmt.Sprintf("Your account was accessed on %s. If this wasn't you, please change your password.", when),
			AR: fmt.Sprintf("تم الدخول إلى حسابك بتاريخ %s. إذا لم تكن أنت، يرجى تغيير كلمة المرور.", when),
		},
		Date: time.Now().UTC(),
	}
}

// ServerErrorsOccurred alerts admins that unresolved server errors piled
// up. Emitted by a scheduler tick, which is why receivers are deduped
// through the inbox preference gate.
func ServerErrorsOccurred(count int) account.Notification {
	return account.Notification{
		Kind: "server_errors",
		Title: account.Text{
			EN: fmt.Sprintf("%d errors occurred on the server", count),
			AR: fmt.Sprintf("هناك %d أخطاء حدثت على الخادم", count),
		},
		Body: account.Text{
			EN: fmt.Sprintf("There are %d errors that occurred on the server that need to be fixed. Please contact the development team immediately.", count),
			AR: fmt.Sprintf("هناك %d أخطاء حدثت على الخادم بحاجة إلى إصلاح. يرجى الاتصال بفريق التطوير على الفور.", count),
		},
		Date: time.Now().UTC(),
	}
}
