package forms

// PostForm creates or edits a blog post.
type PostForm struct {
	Title    string `form:"title" validate:"notblank" msg:"Please enter a title."`
	Subtitle string `form:"subtitle" validate:"notblank" msg:"Please enter a subtitle."`
	ImgURL   string `form:"img_url" validate:"notblank,url" msg:"Please enter an image URL."`
	Body     string `form:"body" sanitize:"html" validate:"notblank" msg:"Please write the post content."`
}

// RegisterForm signs up a new reader.
type RegisterForm struct {
	Name     string `form:"name" validate:"notblank" msg:"Please enter your name."`
	Email    string `form:"email" validate:"notblank" msg:"Please enter your email."`
	Password string `form:"password" trim:"false" validate:"notblank" msg:"Please enter your password."`
}

// LoginForm authenticates an existing reader.
type LoginForm struct {
	Email    string `form:"email" validate:"notblank" msg:"Please enter your email."`
	Password string `form:"password" trim:"false" validate:"notblank" msg:"Please enter your password."`
}

// CommentForm adds a comment below a post.
type CommentForm struct {
	Body string `form:"body" sanitize:"html" validate:"notblank" msg:"Please write a comment."`
}

// ContactForm is the message sent to the site owner.
type ContactForm struct {
	Name    string `form:"name" validate:"notblank" msg:"Please enter your name."`
	Email   string `form:"email" validate:"notblank,email" msg:"Please enter your email."`
	Phone   string `form:"phone" validate:"notblank" msg:"Please enter your phone number."`
	Message string `form:"message" validate:"notblank" msg:"Please enter a message."`
}
