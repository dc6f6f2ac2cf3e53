package main

import (
	"AgoraNotify/service/notify"
)

func notifyClient(hostport, token string) *notify.Client {
	return notify.NewClient(notify.ClientOptions{
		WSURL:  "ws://" + hostport + "/ws",
		APIURL: "http://" + hostport,
		Token:  token,
	})
}
