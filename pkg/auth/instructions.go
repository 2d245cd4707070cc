package auth

import (
	"fmt"
	"io"
	"strings"
)

// ShowBotTokenGuide writes step-by-step instructions for creating a bot and
// giving it access to a channel
func ShowBotTokenGuide(w io.Writer) {
	rule := strings.Repeat("=", 72)

	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "TELEGRAM BOT TOKEN")
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "photopost posts through a Telegram bot. To get a token:")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "STEP 1: Open a chat with @BotFather in Telegram")
	fmt.Fprintln(w, "STEP 2: Send /newbot and follow the prompts")
	fmt.Fprintln(w, "        BotFather replies with a token like 123456789:AAE-xyz...")
	fmt.Fprintln(w, "STEP 3: Add the bot to your channel as an administrator")
	fmt.Fprintln(w, "        with the \"Post messages\" permission")
	fmt.Fprintln(w, "STEP 4: Use the channel as chat_id, either @channelname")
	fmt.Fprintln(w, "        or its numeric id (-100...)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "SECURITY:")
	fmt.Fprintln(w, "   The token gives full control of the bot. Never share it.")
	fmt.Fprintln(w, "   Revoke a leaked token with /revoke in @BotFather.")
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w)
}
