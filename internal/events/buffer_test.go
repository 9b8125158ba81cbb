package events

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("buffer", func() {
	It("keeps fifo order while growing", func() {
		buffer := newBuffer()

		buffer.PushBack(&message{Kind: UploadMessageKind, Data: []byte("msg1")})
		Expect(buffer.Size()).To(Equal(1))
		Expect(buffer.head).NotTo(BeNil())
		Expect(buffer.tail).NotTo(BeNil())

		buffer.PushBack(&message{Kind: UploadMessageKind, Data: []byte("msg2")})
		Expect(buffer.Size()).To(Equal(2))
		Expect(buffer.head.Data).To(Equal([]byte("msg1")))
		Expect(buffer.tail.Data).To(Equal([]byte("msg2")))

		buffer.PushBack(&message{Kind: SweepMessageKind, Data: []byte("msg3")})
		Expect(buffer.Size()).To(Equal(3))
		Expect(buffer.head.Data).To(Equal([]byte("msg1")))
		Expect(buffer.tail.Data).To(Equal([]byte("msg3")))
	})

	It("pops in push order and empties out", func() {
		buffer := newBuffer()
		buffer.PushBack(&message{Kind: UploadMessageKind, Data: []byte("msg1")})
		buffer.PushBack(&message{Kind: UploadMessageKind, Data: []byte("msg2")})
		buffer.PushBack(&message{Kind: UploadMessageKind, Data: []byte("msg3")})

		for i, want := range []string{"msg1", "msg2", "msg3"} {
			m := buffer.Pop()
			Expect(m).NotTo(BeNil())
			Expect(m.Data).To(Equal([]byte(want)))
			Expect(buffer.Size()).To(Equal(2 - i))
		}

		Expect(buffer.head).To(BeNil())
		Expect(buffer.tail).To(BeNil())
		Expect(buffer.Pop()).To(BeNil())
	})
})
