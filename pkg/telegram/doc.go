// Package telegram is a minimal Telegram Bot API client.
//
// It implements the two methods the poster needs: sendPhoto, which uploads a
// photo with a caption as multipart/form-data, and getMe, which checks that a
// bot token is valid. Every call makes exactly one attempt. Failures are
// returned as *errors.Error values classified by HTTP status, with 429
// replies carrying the server supplied retry delay in RetryAfter.
//
// The bot token is part of every request URL. The client never writes it to
// a log and strips it from every error message.
//
// Basic usage:
//
//	client := telegram.NewClient(telegram.Options{
//		Token:       token,
//		ReadTimeout: 60 * time.Second,
//	}, log)
//
//	msg, err := client.SendPhoto(ctx, telegram.SendPhotoRequest{
//		ChatID:   "@my_channel",
//		Photo:    f,
//		FileName: "IMG_0001.jpg",
//		Caption:  caption,
//	})
package telegram
