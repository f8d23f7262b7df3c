package notify

import (
	"bytes"
	"html/template"

	"github.com/recipebook/recipebook-server/internal/domain"
)

var templates = template.Must(template.New("mail").Parse(`
{{define "verify"}}<h2>Welcome to RecipeBook!</h2>
<p>Hi {{.Name}},</p>
<p>Please verify your email address to get started:</p>
<p><a href="{{.URL}}">Verify Email</a></p>
<p>This link expires in {{.Expires}}.</p>{{end}}

{{define "reset"}}<h2>Password reset</h2>
<p>Hi {{.Name}},</p>
<p>Someone asked to reset the password for your RecipeBook account. If it was you, continue here:</p>
<p><a href="{{.URL}}">Reset Password</a></p>
<p>This link expires in {{.Expires}}. If you did not ask for a reset you can ignore this email.</p>{{end}}

{{define "shared"}}<h2>{{.Owner}} shared a recipe with you</h2>
<p><strong>{{.Title}}</strong> ({{.Permission}} access)</p>
{{if .Note}}<p>&ldquo;{{.Note}}&rdquo;</p>{{end}}
<p><a href="{{.URL}}">Open recipe</a></p>{{end}}

{{define "comment"}}<h2>New comment on {{.Title}}</h2>
<p>{{.Actor}} wrote:</p>
<p>&ldquo;{{.Text}}&rdquo;</p>
<p><a href="{{.URL}}">Open recipe</a></p>{{end}}

{{define "follower"}}<h2>You have a new follower</h2>
<p>{{.Actor}} is now following your recipes.</p>
<p><a href="{{.URL}}">View profile</a></p>{{end}}
`))

type mailData struct {
	Name       string
	URL        string
	Expires    string
	Owner      string
	Actor      string
	Title      string
	Permission string
	Note       string
	Text       string
}

func render(name string, data mailData) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// displayName prefers the user's name, then username, then email.
func displayName(u *domain.User) string {
	switch {
	case u == nil:
		return "Someone"
	case u.Name != "":
		return u.Name
	case u.Username != "":
		return u.Username
	default:
		return u.Email
	}
}
