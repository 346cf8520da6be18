/*
Package preview holds materialized rewrite previews and exposes them to a host editor.

	+-----------+   GetOrCreate   +-------+   Read   +-----------------+
	|  session  | --------------> | Cache | <------- | ContentProvider | <--- host
	+-----------+                 +-------+          +-----------------+
	                                  ^
	                                  | Evict
	                          +---------------+
	                          | LifecycleHook | <--- host "document closed"
	                          +---------------+

🎯 Purpose:
- Keep at most one preview per file, produced at most once per request burst
- Serve preview content under the dedicated "preview" URI scheme
- Drop previews when the host closes their virtual document

🔄 Flow:
1. A session asks the Cache for a key; only the first caller produces content
2. The host resolves preview:<path> through the ContentProvider
3. Closing preview:<path> evicts <path>; closing anything else is ignored

The Cache is an owned value. Create one with NewCache and hand it to the
session controller, the provider and the hook that share it.
*/
package preview
