package service

// Bot reply texts. Kept together so the tone stays consistent and the
// webhook tests can assert on them.
const (
	replyFollowLinked = "友達追加ありがとうございます！アカウント連携済みです。"

	replyFollowInstruct = "友達追加ありがとうございます！\n\n" +
		"Webアプリでログインして「アカウント連携」からトークンを発行し、\n" +
		"「LINK:トークン」の形式でこのトークに送信してください。"

	replyLinkSuccess = "アカウント連携が完了しました！\nTodo通知を受け取れるようになりました。"

	replyLinkInvalid = "連携トークンが無効か、有効期限が切れています。\n" +
		"Webアプリで新しいトークンを発行してください。"

	replyNotSupported = "ごめんなさい、このメッセージには対応していません。\n" +
		"アカウント連携は「LINK:トークン」の形式で送信してください。"
)
