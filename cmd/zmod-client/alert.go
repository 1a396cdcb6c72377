// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"crypto/tls"
	"fmt"
	"os"
	"strconv"
	"strings"

	mail "gopkg.in/gomail.v2"
)

var (
	alertMailUsr  = os.Getenv("MAIL_USERNAME")
	alertMailPwd  = os.Getenv("MAIL_PASSWORD")
	alertMailSrv  = os.Getenv("MAIL_SERVER")
	alertMailPort = atoi(os.Getenv("MAIL_PORT"))
	alertMailTgts = splitTargets(os.Getenv("MAIL_TGTS"))
)

func atoi(s string) int {
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return v
}

func splitTargets(s string) []string {
	var tgts []string
	for _, v := range strings.Split(s, ",") {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		tgts = append(tgts, v)
	}
	return tgts
}

// report builds the mail summarizing an acquisition.
func report(opt options, n int64, err error) *mail.Message {
	status := "done"
	if err != nil {
		status = "FAILED"
	}

	body := new(strings.Builder)
	fmt.Fprintf(body, "addr:   %q\n", opt.addr)
	fmt.Fprintf(body, "config: %v\n", opt.cfg)
	fmt.Fprintf(body, "res:    %d\n", opt.res)
	fmt.Fprintf(body, "file:   %q\n", opt.raw)
	fmt.Fprintf(body, "size:   %d bytes\n", n)
	if err != nil {
		fmt.Fprintf(body, "error:  %+v\n", err)
	}

	msg := mail.NewMessage()
	msg.SetHeader("From", alertMailUsr)
	msg.SetHeader("Bcc", alertMailTgts...)
	msg.SetHeader("Subject", fmt.Sprintf("[zmod-client] acquisition %s: %q", status, opt.addr))
	msg.SetBody("text/plain", body.String())
	return msg
}

func alertMail(opt options, n int64, err error) error {
	if alertMailUsr == "" || alertMailPwd == "" ||
		alertMailSrv == "" || alertMailPort == 0 ||
		len(alertMailTgts) == 0 {
		return fmt.Errorf("could not send mail alert: missing credentials")
	}

	dial := mail.NewDialer(alertMailSrv, alertMailPort, alertMailUsr, alertMailPwd)
	dial.TLSConfig = &tls.Config{
		ServerName: alertMailSrv,
	}
	err = dial.DialAndSend(report(opt, n, err))
	if err != nil {
		return fmt.Errorf("could not send mail alert: %w", err)
	}
	return nil
}
